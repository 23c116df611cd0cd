package channel

import (
	"context"

	"relayguard/pkg/bus"
)

// Handler processes one inbound message from a transport.
type Handler func(context.Context, bus.InboundMessage) error

// Adapter bridges one external transport (for example Telegram) into the relay.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}
