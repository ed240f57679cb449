package daemon

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/danang/antria/pkg/channels"
	"github.com/danang/antria/pkg/gateway"
)

func (d *Daemon) initializeChannelRegistry() error {
	d.channelRegistry = channels.NewRegistry(d.dispatchInboundMessage)

	// The gateway injects operator control tokens through this channel.
	// It stays addressable even when the gateway server is disabled so
	// tooling can always dispatch under a known channel name.
	if err := d.registerChannel(channels.NewDirectChannel(gateway.ChannelName)); err != nil {
		return err
	}

	return nil
}

func (d *Daemon) registerChannel(ch channels.Channel) error {
	if d.channelRegistry == nil {
		return fmt.Errorf("channel registry is not initialized")
	}
	return d.channelRegistry.Register(ch)
}

// dispatchInboundMessage feeds a normalized inbound message into the
// conversation engine.
func (d *Daemon) dispatchInboundMessage(ctx context.Context, msg channels.InboundMessage) (interface{}, error) {
	result, err := d.engine.HandleInbound(ctx, msg)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result, nil
}

// logTransport stands in for a messaging channel when none is enabled.
// Outbound replies are written to the log instead of being delivered.
type logTransport struct {
	logger zerolog.Logger
}

func newLogTransport(logger zerolog.Logger) *logTransport {
	return &logTransport{
		logger: logger.With().Str("component", "log-transport").Logger(),
	}
}

func (t *logTransport) SendText(senderID, text string) error {
	t.logger.Info().
		Str("sender_id", senderID).
		Str("text", text).
		Msg("Outbound message (no delivery channel)")
	return nil
}
