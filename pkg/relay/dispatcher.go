package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"relayguard/pkg/bus"
	"relayguard/pkg/registry"
)

// Dispatcher fans one safe source message out to every registered destination.
type Dispatcher struct {
	registry    *registry.Registry
	transport   Transport
	sendTimeout time.Duration
	log         *slog.Logger
}

// NewDispatcher builds a dispatcher over a registry snapshot source and a transport.
func NewDispatcher(reg *registry.Registry, transport Transport, sendTimeout time.Duration, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		registry:    reg,
		transport:   transport,
		sendTimeout: sendTimeout,
		log:         log.With("component", "relay.dispatcher"),
	}
}

// Dispatch forwards one message to every destination in the current registry
// snapshot.
//
// Destinations are attempted independently and concurrently; one failed or
// slow destination never blocks or aborts the others. Each send carries its
// own timeout. An empty registry is a no-op, not an error. The returned
// slice holds one outcome per destination, in snapshot order.
func (d *Dispatcher) Dispatch(ctx context.Context, msg bus.InboundMessage) ([]Delivery, error) {
	snapshot, err := d.registry.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	dispatchID := uuid.NewString()
	if len(snapshot) == 0 {
		d.log.Debug("No destinations registered, nothing to forward", "dispatch_id", dispatchID)
		return nil, nil
	}

	deliveries := make([]Delivery, len(snapshot))

	var wg sync.WaitGroup
	for i, dest := range snapshot {
		wg.Add(1)
		go func(i int, dest registry.DestinationID) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
			defer cancel()

			err := d.transport.Forward(sendCtx, dest, msg.ChatID, msg.MessageID)
			deliveries[i] = Delivery{Destination: dest, Err: err}

			if err != nil {
				d.log.Error("Failed to forward message", "dispatch_id", dispatchID, "destination", string(dest), "message_id", msg.MessageID, "error", err)
				return
			}
			d.log.Debug("Forwarded message", "dispatch_id", dispatchID, "destination", string(dest), "message_id", msg.MessageID)
		}(i, dest)
	}
	wg.Wait()

	delivered := 0
	for _, delivery := range deliveries {
		if delivery.Delivered() {
			delivered++
		}
	}
	d.log.Info("Dispatch finished", "dispatch_id", dispatchID, "message_id", msg.MessageID, "destinations", len(deliveries), "delivered", delivered)

	return deliveries, nil
}
