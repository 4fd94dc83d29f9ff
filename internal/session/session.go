// Package session holds the shared mutable state of one bridge run: the
// bounded message log shown by the display and the race flags the simulation
// keys operate on. A single State value is created at startup and shared by
// reference across all workers; every access goes through the internal mutex
// and no method blocks on I/O while holding it.
package session

import (
	"fmt"
	"sync"
	"time"
)

// MaxLogEntries bounds the in-memory message log. Older entries are evicted
// oldest-first once the log is full.
const MaxLogEntries = 1000

// state holds the session fields; State serializes access to them.
type state struct {
	log            []string
	messageCount   int
	raceActive     bool
	raceStartTime  time.Time
	simulationMode bool
}

// State carries the session history and race flags for one bridge run.
type State struct {
	mu sync.Mutex
	s  state
}

// New creates a session in the given mode. The mode is fixed for the life of
// the session.
func New(simulationMode bool) *State {
	return &State{s: state{simulationMode: simulationMode}}
}

// SimulationMode reports whether the session was constructed in simulation
// mode.
func (st *State) SimulationMode() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.simulationMode
}

// AppendMessage numbers and appends a rendered message to the log, evicting
// the oldest entry once the log exceeds MaxLogEntries. The message counter
// counts every append and is never reduced by eviction.
func (st *State) AppendMessage(text string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.s.messageCount++
	st.s.log = append(st.s.log, fmt.Sprintf("%4d | %s", st.s.messageCount, text))
	if len(st.s.log) > MaxLogEntries {
		st.s.log = st.s.log[1:]
	}
}

// MessageCount returns the total number of messages ever appended.
func (st *State) MessageCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.messageCount
}

// Messages returns a copy of the current log, oldest first.
func (st *State) Messages() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]string, len(st.s.log))
	copy(out, st.s.log)
	return out
}

// StartRace marks the race active as of now. The start time is set exactly
// when the race becomes active, keeping the two fields consistent.
func (st *State) StartRace(now time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.raceActive = true
	st.s.raceStartTime = now
}

// StopRace clears the race flag and its start time together.
func (st *State) StopRace() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.raceActive = false
	st.s.raceStartTime = time.Time{}
}

// RaceActive reports whether a race is in progress.
func (st *State) RaceActive() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.raceActive
}

// RaceTime returns the elapsed race time at now, or zero when no race is
// active. Used by the simulation lap keys.
func (st *State) RaceTime(now time.Time) float64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.s.raceActive {
		return 0
	}
	return now.Sub(st.s.raceStartTime).Seconds()
}

// Snapshot is a consistent point-in-time copy of the display-relevant state.
type Snapshot struct {
	Messages       []string
	MessageCount   int
	RaceActive     bool
	SimulationMode bool
}

// Snapshot copies the state under a single lock acquisition so the display
// never observes a half-applied update.
func (st *State) Snapshot() Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	msgs := make([]string, len(st.s.log))
	copy(msgs, st.s.log)
	return Snapshot{
		Messages:       msgs,
		MessageCount:   st.s.messageCount,
		RaceActive:     st.s.raceActive,
		SimulationMode: st.s.simulationMode,
	}
}
