package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	traceID := NewTraceID()
	ctx = WithTraceID(ctx, traceID)
	assert.Equal(t, traceID, GetTraceID(ctx))
}

func TestNewTraceIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewTraceID()
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "trace IDs must not repeat")
		seen[id] = true
	}
}

func TestNewInboundContext(t *testing.T) {
	ctx := NewInboundContext(context.Background(), "telegram", "628123")

	assert.NotEmpty(t, GetTraceID(ctx))
	assert.Equal(t, "telegram", GetChannel(ctx))
	assert.Equal(t, "628123", GetSenderID(ctx))
}

func TestFromContextAndNewContext(t *testing.T) {
	ctx := NewInboundContext(context.Background(), "gateway", "999")
	ctx = WithRequestID(ctx, "req-1")

	tc := FromContext(ctx)
	assert.Equal(t, "gateway", tc.Channel)
	assert.Equal(t, "999", tc.SenderID)
	assert.Equal(t, "req-1", tc.RequestID)

	restored := NewContext(context.Background(), tc)
	assert.Equal(t, tc.TraceID, GetTraceID(restored))
	assert.Equal(t, "999", GetSenderID(restored))
	assert.Equal(t, "req-1", GetRequestID(restored))
}

func TestMergeContextDoesNotOverwrite(t *testing.T) {
	target := WithSenderID(context.Background(), "keep")
	source := WithSenderID(context.Background(), "discard")
	source = WithChannel(source, "telegram")

	merged := MergeContext(target, source)
	assert.Equal(t, "keep", GetSenderID(merged))
	assert.Equal(t, "telegram", GetChannel(merged))
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := NewInboundContext(context.Background(), "telegram", "628123")
	logger := LoggerFromContext(ctx, base)
	logger.Info().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"sender_id":"628123"`)
	assert.Contains(t, out, `"channel":"telegram"`)
	assert.Contains(t, out, `"trace_id"`)
}
