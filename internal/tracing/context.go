package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// SenderIDKey is the context key for the conversation sender ID
	SenderIDKey ContextKey = "sender_id"
	// ChannelKey is the context key for the ingress channel name
	ChannelKey ContextKey = "channel"
	// RequestIDKey is the context key for request ID (for idempotency)
	RequestIDKey ContextKey = "request_id"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID   string
	SenderID  string
	Channel   string
	RequestID string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithSenderID adds a sender ID to the context
func WithSenderID(ctx context.Context, senderID string) context.Context {
	return context.WithValue(ctx, SenderIDKey, senderID)
}

// WithChannel adds a channel name to the context
func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, ChannelKey, channel)
}

// WithRequestID adds a request ID to the context for idempotency
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetSenderID retrieves the sender ID from the context
func GetSenderID(ctx context.Context) string {
	if senderID, ok := ctx.Value(SenderIDKey).(string); ok {
		return senderID
	}
	return ""
}

// GetChannel retrieves the channel name from the context
func GetChannel(ctx context.Context) string {
	if channel, ok := ctx.Value(ChannelKey).(string); ok {
		return channel
	}
	return ""
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:   GetTraceID(ctx),
		SenderID:  GetSenderID(ctx),
		Channel:   GetChannel(ctx),
		RequestID: GetRequestID(ctx),
	}
}

// NewContext creates a new context with tracing information
func NewContext(ctx context.Context, tc *TraceContext) context.Context {
	if tc.TraceID != "" {
		ctx = WithTraceID(ctx, tc.TraceID)
	}
	if tc.SenderID != "" {
		ctx = WithSenderID(ctx, tc.SenderID)
	}
	if tc.Channel != "" {
		ctx = WithChannel(ctx, tc.Channel)
	}
	if tc.RequestID != "" {
		ctx = WithRequestID(ctx, tc.RequestID)
	}
	return ctx
}

// NewInboundContext creates a context for an inbound message with a fresh
// trace ID and the sender/channel attached.
func NewInboundContext(ctx context.Context, channel, senderID string) context.Context {
	ctx = WithTraceID(ctx, NewTraceID())
	ctx = WithChannel(ctx, channel)
	return WithSenderID(ctx, senderID)
}
