package bridge

import (
	"context"
	"log"
	"time"

	"github.com/trackside-data/lapbridge/internal/message"
	"github.com/trackside-data/lapbridge/internal/shutdown"
)

// DefaultSimHeartbeatInterval is the cadence of synthetic heartbeats in
// simulation mode, matching the real hardware's emission rate.
const DefaultSimHeartbeatInterval = 2 * time.Second

// SimulationWorker stands in for the timing hardware when none is attached:
// it publishes a heartbeat on a fixed cadence and nothing else. Lap and race
// events come from the command dispatcher and the display's convenience keys.
type SimulationWorker struct {
	publisher *EventPublisher

	// HeartbeatInterval overrides the synthetic heartbeat cadence in tests.
	HeartbeatInterval time.Duration
}

// NewSimulationWorker creates a simulation worker.
func NewSimulationWorker(publisher *EventPublisher) *SimulationWorker {
	return &SimulationWorker{
		publisher:         publisher,
		HeartbeatInterval: DefaultSimHeartbeatInterval,
	}
}

// Run publishes heartbeats until shutdown. Shutdown latency is bounded by one
// heartbeat interval.
func (w *SimulationWorker) Run(ctx context.Context, coord *shutdown.Coordinator) {
	log.Printf("simulation worker started")
	defer log.Printf("simulation worker stopped")

	w.publisher.Publish(ctx, message.Status{Message: "Running in simulation mode"})

	ticker := time.NewTicker(w.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-coord.Done():
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.publisher.Publish(ctx, message.Heartbeat{})
		}
	}
}
