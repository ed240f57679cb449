package daemon

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danang/antria/pkg/channels"
	"github.com/danang/antria/pkg/gateway"
)

func TestEventLoop_RefreshSessionGauges(t *testing.T) {
	d := newTestDaemon(t)

	for _, sender := range []string{"a", "b", "c"} {
		_, err := d.channelRegistry.Dispatch(context.Background(), channels.InboundMessage{
			Channel:  gateway.ChannelName,
			SenderID: sender,
			Text:     "hello",
		})
		require.NoError(t, err)
	}

	loop := NewEventLoop(d)
	loop.refreshSessionGauges()

	expected := `
# HELP sessions_by_state Number of sessions currently in each state
# TYPE sessions_by_state gauge
sessions_by_state{state="active"} 0
sessions_by_state{state="idle"} 0
sessions_by_state{state="menu"} 3
sessions_by_state{state="queued"} 0
`
	err := testutil.CollectAndCompare(d.metrics.SessionsByState, strings.NewReader(expected))
	assert.NoError(t, err)
}

func TestEventLoop_RunStopsOnContextCancel(t *testing.T) {
	d := newTestDaemon(t)
	loop := NewEventLoop(d)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	cancel()
	<-done
}
