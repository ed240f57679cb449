package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danang/antria/pkg/session"
)

type fakeTransport struct {
	sent []string
	fail bool
}

func (f *fakeTransport) SendText(senderID, text string) error {
	if f.fail {
		return errors.New("transport down")
	}
	f.sent = append(f.sent, senderID+":"+text)
	return nil
}

func newTestServer(t *testing.T, store session.Store, transport *fakeTransport) *Server {
	t.Helper()
	if store == nil {
		store = session.NewMemoryStore(zerolog.Nop())
	}
	if transport == nil {
		transport = &fakeTransport{}
	}
	srv, err := NewServer(ServerOptions{}, store, transport, nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { srv.rateLimiter.Stop() })
	return srv
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer(ServerOptions{}, nil, &fakeTransport{}, nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewServer(ServerOptions{}, session.NewMemoryStore(zerolog.Nop()), nil, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestListSessions(t *testing.T) {
	store := session.NewMemoryStore(zerolog.Nop())
	srv := newTestServer(t, store, nil)

	// Empty store returns an empty array, not null
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/sessions", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())

	store.GetOrCreate("a")
	store.GetOrCreate("b")

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/sessions", nil))

	var ids []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ids))
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestGetSession(t *testing.T) {
	store := session.NewMemoryStore(zerolog.Nop())
	sess := store.GetOrCreate("628123")
	sess.State = session.StateQueued
	store.Put("628123", sess)

	srv := newTestServer(t, store, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/sessions/628123", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var got session.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "628123", got.SenderID)
	assert.Equal(t, session.StateQueued, got.State)
}

func TestGetSessionNotFound(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/sessions/ghost", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
}

func TestSendMessage(t *testing.T) {
	store := session.NewMemoryStore(zerolog.Nop())
	transport := &fakeTransport{}
	srv := newTestServer(t, store, transport)

	body := strings.NewReader(`{"text":"operator ping"}`)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/sessions/628123/message", body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"628123:operator ping"}, transport.sent)

	// Direct sends never create or mutate sessions
	_, ok := store.Get("628123")
	assert.False(t, ok)
}

func TestSendMessageValidation(t *testing.T) {
	transport := &fakeTransport{}
	srv := newTestServer(t, nil, transport)

	tests := []struct {
		name string
		body string
	}{
		{"empty text", `{"text":""}`},
		{"missing text", `{}`},
		{"wrong type", `{"text":42}`},
		{"extra field", `{"text":"hi","state":"active"}`},
		{"not json", `nope`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/sessions/628123/message", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}

	assert.Empty(t, transport.sent)
}

func TestSendMessageTransportFailure(t *testing.T) {
	srv := newTestServer(t, nil, &fakeTransport{fail: true})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/sessions/628123/message", strings.NewReader(`{"text":"hi"}`)))

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRateLimit(t *testing.T) {
	store := session.NewMemoryStore(zerolog.Nop())
	srv, err := NewServer(ServerOptions{RateLimitPerMinute: 2}, store, &fakeTransport{}, nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { srv.rateLimiter.Stop() })

	handler := srv.Handler()
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/sessions", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/sessions", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Another IP is unaffected
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/sessions", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestShutdownRejectsNewRequests(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	srv.shutdownMu.Lock()
	srv.isShuttingDown = true
	srv.shutdownMu.Unlock()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/sessions", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
