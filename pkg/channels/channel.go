package channels

import (
	"context"
)

// InboundMessage is the normalized ingress payload from any channel.
type InboundMessage struct {
	Channel     string
	SenderID    string
	DisplayName string
	Text        string
	FromSelf    bool
	Metadata    map[string]interface{}
}

// DispatchFunc routes an inbound channel message into the conversation engine.
type DispatchFunc func(ctx context.Context, msg InboundMessage) (interface{}, error)

// Channel is a channel runtime abstraction (telegram, gateway, ...).
type Channel interface {
	Name() string
	Start(ctx context.Context, dispatch DispatchFunc) error
	Stop(ctx context.Context) error
}
