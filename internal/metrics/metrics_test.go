package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
	if m.registry == nil {
		t.Error("Registry is nil")
	}

	if m.MessagesReceivedTotal == nil {
		t.Error("MessagesReceivedTotal is nil")
	}
	if m.TransitionsTotal == nil {
		t.Error("TransitionsTotal is nil")
	}
	if m.SessionsByState == nil {
		t.Error("SessionsByState is nil")
	}
	if m.SessionsTotal == nil {
		t.Error("SessionsTotal is nil")
	}
	if m.EpisodesArchivedTotal == nil {
		t.Error("EpisodesArchivedTotal is nil")
	}
	if m.MessagesSentTotal == nil {
		t.Error("MessagesSentTotal is nil")
	}
	if m.SendErrorsTotal == nil {
		t.Error("SendErrorsTotal is nil")
	}
	if m.AdminRequestsTotal == nil {
		t.Error("AdminRequestsTotal is nil")
	}
	if m.GatewayClientsActive == nil {
		t.Error("GatewayClientsActive is nil")
	}
	if m.GatewayRequestsTotal == nil {
		t.Error("GatewayRequestsTotal is nil")
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()

	// Record samples so labeled metrics appear in output
	m.MessagesReceivedTotal.WithLabelValues("telegram").Inc()
	m.TransitionsTotal.WithLabelValues("idle", "menu").Inc()
	m.SessionsByState.WithLabelValues("queued").Set(2)
	m.AdminRequestsTotal.WithLabelValues("/sessions", "200").Inc()
	m.GatewayRequestsTotal.WithLabelValues("sessions.list", "ok").Inc()

	handler := m.Handler()
	if handler == nil {
		t.Fatal("Handler returned nil")
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()

	expectedMetrics := []string{
		"messages_received_total",
		"conversation_transitions_total",
		"sessions_by_state",
		"sessions_total",
		"episodes_archived_total",
		"messages_sent_total",
		"send_errors_total",
		"admin_requests_total",
		"gateway_clients_active",
		"gateway_requests_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("Metrics output missing: %s", metric)
		}
	}
}

func TestRecordTransition(t *testing.T) {
	m := NewMetrics()

	m.RecordTransition("idle", "menu")
	m.RecordTransition("idle", "menu")
	m.RecordTransition("menu", "queued")

	metricFamilies, err := m.registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metricFamilies {
		if *mf.Name == "conversation_transitions_total" {
			found = true
			if len(mf.Metric) != 2 {
				t.Errorf("Expected 2 label combinations, got %d", len(mf.Metric))
			}
		}
	}
	if !found {
		t.Error("conversation_transitions_total metric not found")
	}
}

func TestMetricsIsolation(t *testing.T) {
	m1 := NewMetrics()
	m2 := NewMetrics()

	m1.SessionsTotal.Inc()
	m1.SessionsTotal.Inc()
	m2.SessionsTotal.Inc()

	metricFamilies1, _ := m1.registry.Gather()
	for _, mf := range metricFamilies1 {
		if *mf.Name == "sessions_total" {
			if len(mf.Metric) > 0 && *mf.Metric[0].Counter.Value != 2 {
				t.Errorf("m1: Expected value 2, got %f", *mf.Metric[0].Counter.Value)
			}
		}
	}

	metricFamilies2, _ := m2.registry.Gather()
	for _, mf := range metricFamilies2 {
		if *mf.Name == "sessions_total" {
			if len(mf.Metric) > 0 && *mf.Metric[0].Counter.Value != 1 {
				t.Errorf("m2: Expected value 1, got %f", *mf.Metric[0].Counter.Value)
			}
		}
	}
}
