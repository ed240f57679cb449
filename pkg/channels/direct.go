package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// DirectChannel is an in-process ingress channel for paths that skip a
// real messaging provider, such as the admin API and the operator
// gateway. It holds the dispatcher handed to Start so callers can
// inject messages under its channel name.
type DirectChannel struct {
	name string

	mu       sync.RWMutex
	dispatch DispatchFunc
}

// NewDirectChannel creates a direct channel by name.
func NewDirectChannel(name string) *DirectChannel {
	return &DirectChannel{name: strings.TrimSpace(name)}
}

// Name returns channel name.
func (c *DirectChannel) Name() string {
	return c.name
}

// Start wires the dispatcher. Direct channels have no provider
// connection, so starting is just validation.
func (c *DirectChannel) Start(_ context.Context, dispatch DispatchFunc) error {
	if c.name == "" {
		return fmt.Errorf("channel name is required")
	}
	if dispatch == nil {
		return fmt.Errorf("dispatch function is required")
	}

	c.mu.Lock()
	c.dispatch = dispatch
	c.mu.Unlock()
	return nil
}

// Stop detaches the dispatcher.
func (c *DirectChannel) Stop(_ context.Context) error {
	c.mu.Lock()
	c.dispatch = nil
	c.mu.Unlock()
	return nil
}

// Inject feeds a message through the channel as if it arrived from a
// sender. The message is stamped with the channel name before dispatch.
func (c *DirectChannel) Inject(ctx context.Context, msg InboundMessage) (interface{}, error) {
	c.mu.RLock()
	dispatch := c.dispatch
	c.mu.RUnlock()

	if dispatch == nil {
		return nil, fmt.Errorf("channel %s is not started", c.name)
	}

	msg.Channel = c.name
	return dispatch(ctx, msg)
}
