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

// FrameSender replays the vendor reset frames to the hardware. Implemented by
// the serial mux, which is the sole owner of the port; nil in simulation mode.
type FrameSender interface {
	SendResetFrames() error
}

// Dispatcher consumes commands from the inbound channel and turns them into
// outbound events and session updates.
type Dispatcher struct {
	publisher *EventPublisher
	state     *session.State
	frames    FrameSender

	// PollTimeout bounds one receive attempt; shutdown latency for the
	// dispatcher is one poll.
	PollTimeout time.Duration
}

// NewDispatcher creates a dispatcher. frames may be nil (simulation mode or
// hardware unavailable); a hardware-mode start_race then reports the missing
// hardware instead of claiming the commands were sent.
func NewDispatcher(publisher *EventPublisher, state *session.State, frames FrameSender) *Dispatcher {
	return &Dispatcher{
		publisher:   publisher,
		state:       state,
		frames:      frames,
		PollTimeout: bus.DefaultReceiveTimeout,
	}
}

// Run polls the subscription until shutdown. Each iteration is one bounded
// receive attempt followed by a shutdown check; malformed payloads and
// unknown commands are logged and dropped without ending the loop.
func (d *Dispatcher) Run(ctx context.Context, sub bus.Subscription, coord *shutdown.Coordinator) {
	log.Printf("command dispatcher started")
	defer log.Printf("command dispatcher stopped")

	for !coord.ShuttingDown() {
		payload, err := sub.Receive(ctx, d.PollTimeout)
		if err != nil {
			if errors.Is(err, bus.ErrReceiveTimeout) {
				continue
			}
			if ctx.Err() != nil || coord.ShuttingDown() {
				return
			}
			log.Printf("command receive failed: %v", err)
			continue
		}

		cmd, err := message.UnmarshalCommand(payload)
		if err != nil {
			var unknown *message.UnknownCommandError
			if errors.As(err, &unknown) {
				log.Printf("ignoring unknown command %q", unknown.Name)
			} else {
				log.Printf("dropping malformed command payload: %v", err)
			}
			continue
		}

		d.Dispatch(ctx, cmd)
	}
}

// Dispatch executes one decoded command.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd message.Command) {
	switch c := cmd.(type) {
	case message.StartRace:
		if d.state.SimulationMode() {
			d.state.StartRace(time.Now())
			d.publisher.Publish(ctx, message.Status{Message: "Simulation race started"})
			log.Printf("simulation race started")
			return
		}
		if d.frames == nil {
			d.publisher.Publish(ctx, message.Status{Message: "Cannot start race: hardware not connected"})
			log.Printf("start race ignored: hardware not connected")
			return
		}
		if err := d.frames.SendResetFrames(); err != nil {
			d.publisher.Publish(ctx, message.Status{Message: "Error sending commands: " + err.Error()})
			log.Printf("failed to send reset frames: %v", err)
			return
		}
		d.publisher.Publish(ctx, message.Status{Message: "Start race commands sent"})
		log.Printf("start race commands sent")

	case message.StopRace:
		if d.state.SimulationMode() {
			d.state.StopRace()
			d.publisher.Publish(ctx, message.Status{Message: "Simulation race stopped"})
			log.Printf("simulation race stopped")
			return
		}
		d.publisher.Publish(ctx, message.Status{Message: "Stop race command received"})
		log.Printf("stop race command received")

	case message.SimulateLap:
		d.publisher.Publish(ctx, message.Lap{
			RacerID:  c.RacerID,
			SensorID: c.SensorID,
			RaceTime: c.RaceTime,
		})
		log.Printf("simulated lap for racer %d", c.RacerID)
	}
}
