// Package shutdown provides the one-directional stop flag shared by every
// worker loop. The flag is set at most once and never cleared; workers observe
// it between units of work (never mid-blocking-call), finish the unit in
// flight, and return. Stop latency for any worker is therefore bounded by its
// single longest blocking timeout.
package shutdown

import (
	"sync"
	"sync/atomic"
)

// Coordinator is the shared shutdown signal. The zero value is not usable;
// call NewCoordinator.
type Coordinator struct {
	once sync.Once
	flag atomic.Bool
	done chan struct{}
}

// NewCoordinator returns a coordinator in the running state.
func NewCoordinator() *Coordinator {
	return &Coordinator{done: make(chan struct{})}
}

// Shutdown requests cooperative termination. Safe to call from any goroutine
// and idempotent; the flag never transitions back.
func (c *Coordinator) Shutdown() {
	c.once.Do(func() {
		c.flag.Store(true)
		close(c.done)
	})
}

// ShuttingDown reports whether shutdown has been requested. Workers poll this
// at iteration boundaries.
func (c *Coordinator) ShuttingDown() bool {
	return c.flag.Load()
}

// Done returns a channel closed when shutdown is requested, for use in select
// loops alongside work sources and tickers.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}
