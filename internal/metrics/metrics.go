package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// Conversation metrics
	MessagesReceivedTotal *prometheus.CounterVec
	TransitionsTotal      *prometheus.CounterVec
	SessionsByState       *prometheus.GaugeVec
	SessionsTotal         prometheus.Counter
	EpisodesArchivedTotal prometheus.Counter

	// Outbound metrics
	MessagesSentTotal prometheus.Counter
	SendErrorsTotal   prometheus.Counter

	// Admin API metrics
	AdminRequestsTotal *prometheus.CounterVec

	// Gateway metrics
	GatewayClientsActive prometheus.Gauge
	GatewayRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		// Conversation metrics
		MessagesReceivedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messages_received_total",
				Help: "Total number of inbound messages by channel",
			},
			[]string{"channel"},
		),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conversation_transitions_total",
				Help: "Total number of conversation state transitions",
			},
			[]string{"from", "to"},
		),
		SessionsByState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sessions_by_state",
				Help: "Number of sessions currently in each state",
			},
			[]string{"state"},
		),
		SessionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sessions_total",
				Help: "Total number of sessions created",
			},
		),
		EpisodesArchivedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "episodes_archived_total",
				Help: "Total number of conversation episodes archived",
			},
		),

		// Outbound metrics
		MessagesSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "messages_sent_total",
				Help: "Total number of outbound messages sent",
			},
		),
		SendErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "send_errors_total",
				Help: "Total number of outbound send failures",
			},
		),

		// Admin API metrics
		AdminRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_requests_total",
				Help: "Total number of admin API requests",
			},
			[]string{"route", "status"},
		),

		// Gateway metrics
		GatewayClientsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gateway_clients_active",
				Help: "Number of connected gateway clients",
			},
		),
		GatewayRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_requests_total",
				Help: "Total number of gateway RPC requests",
			},
			[]string{"method", "status"},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.MessagesReceivedTotal)
	m.registry.MustRegister(m.TransitionsTotal)
	m.registry.MustRegister(m.SessionsByState)
	m.registry.MustRegister(m.SessionsTotal)
	m.registry.MustRegister(m.EpisodesArchivedTotal)

	m.registry.MustRegister(m.MessagesSentTotal)
	m.registry.MustRegister(m.SendErrorsTotal)

	m.registry.MustRegister(m.AdminRequestsTotal)

	m.registry.MustRegister(m.GatewayClientsActive)
	m.registry.MustRegister(m.GatewayRequestsTotal)
}

// RecordTransition increments the transition counter for a from/to pair
func (m *Metrics) RecordTransition(from, to string) {
	m.TransitionsTotal.WithLabelValues(from, to).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
