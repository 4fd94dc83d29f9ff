// Package bridge wires the serial protocol, the session state, and the bus
// together: it contains the event publisher, the command dispatcher, and the
// long-running workers for hardware and simulation modes. Every worker
// observes the shared shutdown coordinator between units of work and never
// holds the session lock across a blocking call.
package bridge

import (
	"context"
	"log"

	"github.com/trackside-data/lapbridge/internal/bus"
	"github.com/trackside-data/lapbridge/internal/message"
)

// EventPublisher serializes events and publishes them on the outbound
// channel. A failed publish is logged and the event dropped; the producing
// loop never stalls on delivery.
type EventPublisher struct {
	bus     bus.Publisher
	channel string
}

// NewEventPublisher creates a publisher bound to the outbound event channel.
func NewEventPublisher(b bus.Publisher) *EventPublisher {
	return &EventPublisher{bus: b, channel: bus.EventChannel}
}

// Publish serializes and publishes one event, applying the log-and-drop
// failure policy.
func (p *EventPublisher) Publish(ctx context.Context, ev message.Event) {
	payload, err := message.MarshalEvent(ev)
	if err != nil {
		log.Printf("failed to serialize event: %v", err)
		return
	}
	if err := p.bus.Publish(ctx, p.channel, payload); err != nil {
		log.Printf("failed to publish event: %v", err)
	}
}
