// Package heartbeat tracks liveness of the timing hardware. The device emits
// a heartbeat sentence every couple of seconds; if none is seen for the
// staleness threshold the monitor reports the loss exactly once and re-arms,
// so a persistently silent device produces one notice per threshold interval
// instead of one per polling tick.
package heartbeat

import "time"

// DefaultStaleAfter is how long the monitor waits without a heartbeat before
// declaring it lost.
const DefaultStaleAfter = 10 * time.Second

// Monitor tracks the time of the most recent heartbeat. It is not
// goroutine-safe; each worker owns its own monitor. Callers pass the current
// time explicitly so staleness can be tested without wall-clock sleeps.
type Monitor struct {
	lastSeen   time.Time
	staleAfter time.Duration
}

// NewMonitor creates a monitor armed at start. A non-positive staleAfter
// falls back to DefaultStaleAfter.
func NewMonitor(start time.Time, staleAfter time.Duration) *Monitor {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Monitor{lastSeen: start, staleAfter: staleAfter}
}

// Observe records a heartbeat seen at now.
func (m *Monitor) Observe(now time.Time) {
	m.lastSeen = now
}

// Check reports whether the heartbeat went stale as of now. On a stale result
// the monitor re-arms itself so the next Check only fires after another full
// threshold of silence.
func (m *Monitor) Check(now time.Time) bool {
	if now.Sub(m.lastSeen) <= m.staleAfter {
		return false
	}
	m.lastSeen = now
	return true
}
