package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/danang/antria/internal/metrics"
	"github.com/danang/antria/pkg/conversation"
	"github.com/danang/antria/pkg/session"
)

// ServerOptions configures the admin HTTP server
type ServerOptions struct {
	Host               string
	Port               int
	RateLimitPerMinute int
	ShutdownGrace      time.Duration
}

// Server exposes the session store and direct sends over HTTP
type Server struct {
	options       ServerOptions
	server        *http.Server
	store         session.Store
	transport     conversation.Transport
	metrics       *metrics.Metrics
	rateLimiter   *RateLimiter
	messageSchema *gojsonschema.Schema
	logger        zerolog.Logger
	startTime     time.Time

	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates a new admin server
func NewServer(options ServerOptions, store session.Store, transport conversation.Transport, m *metrics.Metrics, logger zerolog.Logger) (*Server, error) {
	if options.Port == 0 {
		options.Port = 3000
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.RateLimitPerMinute == 0 {
		options.RateLimitPerMinute = 120
	}
	if options.ShutdownGrace == 0 {
		options.ShutdownGrace = 10 * time.Second
	}

	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}

	schema, err := compileMessageSchema()
	if err != nil {
		return nil, err
	}

	return &Server{
		options:       options,
		store:         store,
		transport:     transport,
		metrics:       m,
		rateLimiter:   NewRateLimiter(options.RateLimitPerMinute),
		messageSchema: schema,
		logger:        logger.With().Str("component", "admin").Logger(),
		startTime:     time.Now(),
	}, nil
}

// Handler builds the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /sessions", s.middleware("/sessions", s.handleListSessions))
	mux.HandleFunc("GET /sessions/{id}", s.middleware("/sessions/{id}", s.handleGetSession))
	mux.HandleFunc("POST /sessions/{id}/message", s.middleware("/sessions/{id}/message", s.handleSendMessage))
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return mux
}

// Start starts the admin server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.options.Host, s.options.Port),
		Handler: s.Handler(),
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting admin server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start admin server: %w", err)
	}

	return nil
}

// Stop gracefully stops the admin server, draining in-flight requests
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down admin server")

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(s.options.ShutdownGrace):
		s.logger.Warn().Msg("Shutdown grace reached, forcing close")
	}

	s.rateLimiter.Stop()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown admin server: %w", err)
	}

	s.logger.Info().Msg("Admin server stopped")
	return nil
}

// middleware applies shutdown, in-flight tracking, rate limiting and
// request metrics around a handler.
func (s *Server) middleware(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.shutdownMu.RLock()
		if s.isShuttingDown {
			s.shutdownMu.RUnlock()
			s.writeError(w, http.StatusServiceUnavailable, "server is shutting down")
			return
		}
		s.shutdownMu.RUnlock()

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()

		ip := s.getClientIP(r)
		if !s.rateLimiter.CheckLimit(ip) {
			retryAfter := s.rateLimiter.GetRetryAfter(ip)
			s.logger.Warn().
				Str("ip", ip).
				Str("route", route).
				Int("retryAfter", retryAfter).
				Msg("Rate limit exceeded")

			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			s.countRequest(route, http.StatusTooManyRequests)
			s.writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(recorder, r)

		s.countRequest(route, recorder.status)
		s.logger.Debug().
			Str("route", route).
			Str("ip", ip).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("Admin request completed")
	}
}

func (s *Server) countRequest(route string, status int) {
	if s.metrics != nil {
		s.metrics.AdminRequestsTotal.WithLabelValues(route, fmt.Sprintf("%d", status)).Inc()
	}
}

// getClientIP extracts the client IP from the request
func (s *Server) getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
