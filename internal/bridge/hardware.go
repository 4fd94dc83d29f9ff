package bridge

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/trackside-data/lapbridge/internal/heartbeat"
	"github.com/trackside-data/lapbridge/internal/message"
	"github.com/trackside-data/lapbridge/internal/protocol"
	"github.com/trackside-data/lapbridge/internal/serialmux"
	"github.com/trackside-data/lapbridge/internal/shutdown"
)

// HardwareWorker reads sentences from the timing hardware via the serial mux,
// parses them into events, publishes them, and watches heartbeat liveness.
// The mux (and through it the port) is exclusively owned by this worker's
// monitor loop for its lifetime.
type HardwareWorker struct {
	mux       serialmux.MuxInterface
	publisher *EventPublisher

	// StaleAfter is the heartbeat loss threshold.
	StaleAfter time.Duration
	// CheckInterval is the cadence of staleness checks.
	CheckInterval time.Duration
	// RetryDelay is how long the worker waits before restarting a failed
	// serial monitor.
	RetryDelay time.Duration
}

// NewHardwareWorker creates a worker over an already-open mux.
func NewHardwareWorker(mux serialmux.MuxInterface, publisher *EventPublisher) *HardwareWorker {
	return &HardwareWorker{
		mux:           mux,
		publisher:     publisher,
		StaleAfter:    heartbeat.DefaultStaleAfter,
		CheckInterval: time.Second,
		RetryDelay:    time.Second,
	}
}

// Run sends the initial reset sequence, then consumes parsed sentences until
// shutdown. A failing serial read degrades to a Status diagnostic and the
// monitor is restarted after RetryDelay: the worker stays alive, keeps
// heartbeat-loss notices flowing, and resumes reading once the device
// recovers.
func (w *HardwareWorker) Run(ctx context.Context, coord *shutdown.Coordinator) {
	log.Printf("hardware worker started")
	defer log.Printf("hardware worker stopped")

	if err := w.mux.SendResetFrames(); err != nil {
		w.publisher.Publish(ctx, message.Status{Message: "Error sending commands: " + err.Error()})
		log.Printf("failed to send reset frames: %v", err)
	}

	monitorCtx, cancelMonitor := context.WithCancel(ctx)
	defer cancelMonitor()

	monitorErr := make(chan error, 1)
	startMonitor := func() {
		go func() {
			monitorErr <- w.mux.Monitor(monitorCtx)
		}()
	}
	startMonitor()

	id, lines := w.mux.Subscribe()
	defer w.mux.Unsubscribe(id)

	monitor := heartbeat.NewMonitor(time.Now(), w.StaleAfter)
	ticker := time.NewTicker(w.CheckInterval)
	defer ticker.Stop()

	var retry <-chan time.Time

	for {
		select {
		case <-coord.Done():
			return
		case <-ctx.Done():
			return

		case err := <-monitorErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				// Recoverable from the bridge's point of view: report,
				// stay on the staleness ticker, and retry the monitor.
				w.publisher.Publish(ctx, message.Status{Message: "Error reading serial: " + err.Error()})
				log.Printf("serial monitor failed, restarting in %v: %v", w.RetryDelay, err)
				retry = time.After(w.RetryDelay)
			}

		case <-retry:
			retry = nil
			startMonitor()

		case line, ok := <-lines:
			if !ok {
				return
			}
			ev, emitted := protocol.ParseLine(line)
			if !emitted {
				continue
			}
			if _, isBeat := ev.(message.Heartbeat); isBeat {
				monitor.Observe(time.Now())
			}
			w.publisher.Publish(ctx, ev)

		case now := <-ticker.C:
			if monitor.Check(now) {
				w.publisher.Publish(ctx, message.Status{Message: "Heartbeat lost"})
				log.Printf("heartbeat lost")
			}
		}
	}
}
