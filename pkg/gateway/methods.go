package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/danang/antria/internal/tracing"
	"github.com/danang/antria/pkg/channels"
	"github.com/danang/antria/pkg/replies"
)

// registerBuiltinMethods registers all built-in RPC methods
func (s *Server) registerBuiltinMethods() {
	_ = s.RegisterMethod("ping", s.handlePing)
	_ = s.RegisterMethod("sessions.list", s.handleSessionsList)
	_ = s.RegisterMethod("sessions.get", s.handleSessionsGet)
	_ = s.RegisterMethod("sessions.send", s.handleSessionsSend)
	_ = s.RegisterMethod("queue.select", s.handleQueueSelect)
	_ = s.RegisterMethod("session.done", s.handleSessionDone)
	_ = s.RegisterMethod("clients.list", s.handleClientsList)
}

// handlePing handles the ping RPC method
func (s *Server) handlePing(_ map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	}, nil
}

// handleSessionsList returns a summary of every known session
func (s *Server) handleSessionsList(_ map[string]interface{}) (interface{}, error) {
	ids := s.store.ListIDs()
	sessions := make([]map[string]interface{}, 0, len(ids))

	for _, id := range ids {
		sess, ok := s.store.Get(id)
		if !ok {
			continue
		}
		sessions = append(sessions, map[string]interface{}{
			"senderId":    sess.SenderID,
			"displayName": sess.DisplayName,
			"state":       sess.State.String(),
			"logLength":   len(sess.Log),
		})
	}

	return map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	}, nil
}

// handleSessionsGet returns the full session record for one sender
func (s *Server) handleSessionsGet(params map[string]interface{}) (interface{}, error) {
	senderID, err := senderIDParam(params)
	if err != nil {
		return nil, err
	}

	sess, ok := s.store.Get(senderID)
	if !ok {
		return nil, fmt.Errorf("session not found: %s", senderID)
	}

	return sess, nil
}

// handleSessionsSend sends a text message straight to the sender. The
// message bypasses the conversation flow, so session state and the
// episode log are untouched.
func (s *Server) handleSessionsSend(params map[string]interface{}) (interface{}, error) {
	senderID, err := senderIDParam(params)
	if err != nil {
		return nil, err
	}

	text, ok := params["text"].(string)
	if !ok || text == "" {
		return nil, &RPCError{Code: InvalidParams, Message: "text parameter is required and must be a non-empty string"}
	}

	if err := s.transport.SendText(senderID, text); err != nil {
		if s.metrics != nil {
			s.metrics.SendErrorsTotal.Inc()
		}
		return nil, fmt.Errorf("send failed: %w", err)
	}

	if s.metrics != nil {
		s.metrics.MessagesSentTotal.Inc()
	}

	return map[string]interface{}{"status": "sent"}, nil
}

// handleQueueSelect picks a queued sender up for attending. The control
// token travels the same inbound path as any sender message, so the
// regular state transition rules apply.
func (s *Server) handleQueueSelect(params map[string]interface{}) (interface{}, error) {
	return s.injectControlToken(params, replies.TokenSelected)
}

// handleSessionDone closes out an attended session
func (s *Server) handleSessionDone(params map[string]interface{}) (interface{}, error) {
	return s.injectControlToken(params, replies.TokenDone)
}

func (s *Server) injectControlToken(params map[string]interface{}, token string) (interface{}, error) {
	senderID, err := senderIDParam(params)
	if err != nil {
		return nil, err
	}

	sess, ok := s.store.Get(senderID)
	if !ok {
		return nil, fmt.Errorf("session not found: %s", senderID)
	}

	ctx := tracing.NewInboundContext(context.Background(), ChannelName, senderID)
	result, err := s.dispatch(ctx, channels.InboundMessage{
		Channel:     ChannelName,
		SenderID:    senderID,
		DisplayName: sess.DisplayName,
		Text:        token,
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// handleClientsList returns information about connected operator clients
func (s *Server) handleClientsList(_ map[string]interface{}) (interface{}, error) {
	clients := s.GetConnectedClients()
	return map[string]interface{}{
		"clients": clients,
		"count":   len(clients),
	}, nil
}

func senderIDParam(params map[string]interface{}) (string, error) {
	senderID, ok := params["senderId"].(string)
	if !ok || senderID == "" {
		return "", &RPCError{Code: InvalidParams, Message: "senderId parameter is required and must be a string"}
	}
	return senderID, nil
}
