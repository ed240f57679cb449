package admin

import (
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// sendRequest is the POST /sessions/{id}/message payload
type sendRequest struct {
	Text string `json:"text"`
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).Seconds(),
		"timestamp": time.Now().UnixMilli(),
	})
}

// handleListSessions returns all known sender IDs
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids := s.store.ListIDs()
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// handleGetSession returns one session or a 404 payload
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess, ok := s.store.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	s.writeJSON(w, http.StatusOK, sess)
}

// handleSendMessage sends text directly through the transport. It never
// touches the conversation engine, so session state and logs are
// unaffected.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if err := validateMessageBody(s.messageSchema, body); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req sendRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.transport.SendText(id, req.Text); err != nil {
		s.logger.Error().Err(err).Str("sender_id", id).Msg("Direct send failed")
		if s.metrics != nil {
			s.metrics.SendErrorsTotal.Inc()
		}
		s.writeError(w, http.StatusBadGateway, "failed to send message")
		return
	}

	if s.metrics != nil {
		s.metrics.MessagesSentTotal.Inc()
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
