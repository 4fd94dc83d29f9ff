package bridge

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/trackside-data/lapbridge/internal/bus"
	"github.com/trackside-data/lapbridge/internal/message"
	"github.com/trackside-data/lapbridge/internal/session"
	"github.com/trackside-data/lapbridge/internal/shutdown"
)

// LogListener subscribes to the outbound event channel and records each event
// into the session log for the display. It is the only writer of rendered log
// lines, so the log observes events in bus-delivery order.
type LogListener struct {
	state *session.State

	// PollTimeout bounds one receive attempt.
	PollTimeout time.Duration
}

// NewLogListener creates a listener appending to the given session.
func NewLogListener(state *session.State) *LogListener {
	return &LogListener{state: state, PollTimeout: bus.DefaultReceiveTimeout}
}

// Run consumes events until shutdown. Malformed event payloads are dropped
// quietly; they never end the loop.
func (l *LogListener) Run(ctx context.Context, sub bus.Subscription, coord *shutdown.Coordinator) {
	log.Printf("event log listener started")
	defer log.Printf("event log listener stopped")

	for !coord.ShuttingDown() {
		payload, err := sub.Receive(ctx, l.PollTimeout)
		if err != nil {
			if errors.Is(err, bus.ErrReceiveTimeout) {
				continue
			}
			if ctx.Err() != nil || coord.ShuttingDown() {
				return
			}
			log.Printf("event receive failed: %v", err)
			continue
		}

		ev, err := message.UnmarshalEvent(payload)
		if err != nil {
			log.Printf("dropping malformed event payload: %v", err)
			continue
		}
		l.state.AppendMessage(ev.Format())
	}
}
