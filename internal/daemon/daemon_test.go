package daemon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danang/antria/internal/config"
	"github.com/danang/antria/internal/logger"
	"github.com/danang/antria/pkg/channels"
	"github.com/danang/antria/pkg/conversation"
	"github.com/danang/antria/pkg/gateway"
	"github.com/danang/antria/pkg/replies"
	"github.com/danang/antria/pkg/session"
)

// testConfig builds a config with every network-facing service disabled
// so daemons can be constructed without tokens or open ports.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Channels.Telegram.Enabled = false
	cfg.Channels.Gateway.Enabled = false
	cfg.Admin.Enabled = false
	cfg.Reminder.Enabled = false
	return cfg
}

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)

	d, err := New(testConfig(t), log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if d.Status().Running {
			_ = d.Stop()
		}
	})
	return d
}

func TestNew_WiresCoreModules(t *testing.T) {
	d := newTestDaemon(t)

	assert.NotNil(t, d.Engine())
	assert.NotNil(t, d.Store())
	assert.NotNil(t, d.queue)
	assert.NotNil(t, d.archiver)
	assert.NotNil(t, d.replies)
	assert.NotNil(t, d.channelRegistry)
	assert.Contains(t, d.channelRegistry.Names(), gateway.ChannelName)
}

func TestDispatchRunsTheConversationFlow(t *testing.T) {
	d := newTestDaemon(t)

	result, err := d.channelRegistry.Dispatch(context.Background(), channels.InboundMessage{
		Channel:  gateway.ChannelName,
		SenderID: "628111",
		Text:     "hello",
	})
	require.NoError(t, err)

	res, ok := result.(*conversation.Result)
	require.True(t, ok)
	assert.Equal(t, session.StateIdle, res.From)
	assert.Equal(t, session.StateMenu, res.To)

	sess, found := d.Store().Get("628111")
	require.True(t, found)
	assert.Equal(t, session.StateMenu, sess.State)
}

func TestDispatchOperatorTokensAdvanceTheFlow(t *testing.T) {
	d := newTestDaemon(t)
	ctx := context.Background()

	send := func(text string) *conversation.Result {
		result, err := d.channelRegistry.Dispatch(ctx, channels.InboundMessage{
			Channel:  gateway.ChannelName,
			SenderID: "628111",
			Text:     text,
		})
		require.NoError(t, err)
		return result.(*conversation.Result)
	}

	send("hello")
	res := send(replies.MenuChoiceQueue)
	assert.Equal(t, session.StateQueued, res.To)

	res = send(replies.TokenSelected)
	assert.Equal(t, session.StateActive, res.To)

	res = send(replies.TokenDone)
	assert.Equal(t, session.StateIdle, res.To)
}

func TestStartStop(t *testing.T) {
	d := newTestDaemon(t)

	require.NoError(t, d.Start())
	assert.True(t, d.Status().Running)

	// Double start is rejected
	assert.Error(t, d.Start())

	require.NoError(t, d.Stop())
	assert.False(t, d.Status().Running)

	// Double stop is rejected
	assert.Error(t, d.Stop())
}

func TestStatusReportsUptime(t *testing.T) {
	d := newTestDaemon(t)

	assert.False(t, d.Status().Running)
	assert.Zero(t, d.Status().Uptime)

	require.NoError(t, d.Start())
	status := d.Status()
	assert.True(t, status.Running)
	assert.False(t, status.StartTime.IsZero())

	require.NoError(t, d.Stop())
}

func TestLogTransportNeverFails(t *testing.T) {
	d := newTestDaemon(t)

	// Without telegram the daemon falls back to the log transport
	require.NoError(t, d.transport.SendText("628111", "hello"))
}
