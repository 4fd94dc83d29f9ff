package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackside-data/lapbridge/internal/bus"
	"github.com/trackside-data/lapbridge/internal/message"
	"github.com/trackside-data/lapbridge/internal/session"
	"github.com/trackside-data/lapbridge/internal/shutdown"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []message.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	ev, err := message.UnmarshalEvent(payload)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Events() []message.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]message.Event, len(r.events))
	copy(out, r.events)
	return out
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

type fakeFrameSender struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeFrameSender) SendResetFrames() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeFrameSender) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDispatch_SimulateLapDefaults(t *testing.T) {
	t.Parallel()

	rec := &recordingPublisher{}
	st := session.New(true)
	d := NewDispatcher(NewEventPublisher(rec), st, nil)

	cmd, err := message.UnmarshalCommand([]byte(`{"type":"command","command":"simulate_lap"}`))
	require.NoError(t, err)
	d.Dispatch(context.Background(), cmd)

	require.Len(t, rec.Events(), 1)
	assert.Equal(t, message.Lap{RacerID: 1, SensorID: 1, RaceTime: 0}, rec.Events()[0])
}

func TestDispatch_StartStopRaceSimulation(t *testing.T) {
	t.Parallel()

	rec := &recordingPublisher{}
	st := session.New(true)
	d := NewDispatcher(NewEventPublisher(rec), st, nil)
	ctx := context.Background()

	d.Dispatch(ctx, message.StartRace{})
	assert.True(t, st.RaceActive())

	d.Dispatch(ctx, message.StopRace{})
	assert.False(t, st.RaceActive())

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, message.Status{Message: "Simulation race started"}, events[0])
	assert.Equal(t, message.Status{Message: "Simulation race stopped"}, events[1])
}

func TestDispatch_StartRaceHardwareSendsResetFrames(t *testing.T) {
	t.Parallel()

	rec := &recordingPublisher{}
	st := session.New(false)
	frames := &fakeFrameSender{}
	d := NewDispatcher(NewEventPublisher(rec), st, frames)

	d.Dispatch(context.Background(), message.StartRace{})

	assert.Equal(t, 1, frames.Calls())
	require.Len(t, rec.Events(), 1)
	assert.Equal(t, message.Status{Message: "Start race commands sent"}, rec.Events()[0])
	// The command path never touches race state in hardware mode.
	assert.False(t, st.RaceActive())
}

func TestDispatch_StartRaceHardwareUnavailable(t *testing.T) {
	t.Parallel()

	rec := &recordingPublisher{}
	d := NewDispatcher(NewEventPublisher(rec), session.New(false), nil)

	d.Dispatch(context.Background(), message.StartRace{})

	require.Len(t, rec.Events(), 1)
	assert.Equal(t, message.Status{Message: "Cannot start race: hardware not connected"}, rec.Events()[0])
}

func TestDispatcherRun_UnknownAndMalformedPayloads(t *testing.T) {
	t.Parallel()

	b := bus.NewMemoryBus()
	defer b.Close()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, bus.CommandChannel)
	require.NoError(t, err)
	defer sub.Close()

	rec := &recordingPublisher{}
	d := NewDispatcher(NewEventPublisher(rec), session.New(true), nil)
	d.PollTimeout = 20 * time.Millisecond

	coord := shutdown.NewCoordinator()
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx, sub, coord)
	}()

	// Neither of these may produce events or kill the loop.
	require.NoError(t, b.Publish(ctx, bus.CommandChannel, []byte(`{"type":"command","command":"warp_drive"}`)))
	require.NoError(t, b.Publish(ctx, bus.CommandChannel, []byte(`not json at all`)))

	// A valid command afterwards proves the loop survived.
	require.NoError(t, b.Publish(ctx, bus.CommandChannel, []byte(`{"type":"command","command":"simulate_lap","racer_id":9}`)))

	waitFor(t, time.Second, func() bool { return len(rec.Events()) == 1 })
	assert.Equal(t, message.Lap{RacerID: 9, SensorID: 1, RaceTime: 0}, rec.Events()[0])

	coord.Shutdown()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after shutdown")
	}
}

func TestSimulationWorker_HeartbeatCadence(t *testing.T) {
	t.Parallel()

	rec := &recordingPublisher{}
	w := NewSimulationWorker(NewEventPublisher(rec))
	w.HeartbeatInterval = 20 * time.Millisecond

	coord := shutdown.NewCoordinator()
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(context.Background(), coord)
	}()

	waitFor(t, time.Second, func() bool {
		beats := 0
		for _, ev := range rec.Events() {
			if _, ok := ev.(message.Heartbeat); ok {
				beats++
			}
		}
		return beats >= 3
	})

	coord.Shutdown()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("simulation worker did not stop after shutdown")
	}

	events := rec.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, message.Status{Message: "Running in simulation mode"}, events[0])
}

func TestLogListener_AppendsFormattedEvents(t *testing.T) {
	t.Parallel()

	b := bus.NewMemoryBus()
	defer b.Close()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, bus.EventChannel)
	require.NoError(t, err)
	defer sub.Close()

	st := session.New(true)
	l := NewLogListener(st)
	l.PollTimeout = 20 * time.Millisecond

	coord := shutdown.NewCoordinator()
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx, sub, coord)
	}()

	require.NoError(t, b.Publish(ctx, bus.EventChannel, []byte(`garbage`)))
	require.NoError(t, b.Publish(ctx, bus.EventChannel, []byte(`{"type":"lap","racer_id":3,"sensor_id":1,"race_time":61.5}`)))

	waitFor(t, time.Second, func() bool { return st.MessageCount() == 1 })
	msgs := st.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "   1 | [LAP] Racer 3 - Sensor 1 - Time: 61.500s", msgs[0])

	coord.Shutdown()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop after shutdown")
	}
}

func TestWorkers_StopWithinPollBound(t *testing.T) {
	t.Parallel()

	b := bus.NewMemoryBus()
	defer b.Close()
	ctx := context.Background()

	cmdSub, err := b.Subscribe(ctx, bus.CommandChannel)
	require.NoError(t, err)
	defer cmdSub.Close()
	evSub, err := b.Subscribe(ctx, bus.EventChannel)
	require.NoError(t, err)
	defer evSub.Close()

	st := session.New(true)
	pub := NewEventPublisher(b)

	d := NewDispatcher(pub, st, nil)
	d.PollTimeout = 50 * time.Millisecond
	l := NewLogListener(st)
	l.PollTimeout = 50 * time.Millisecond
	sim := NewSimulationWorker(pub)
	sim.HeartbeatInterval = 50 * time.Millisecond

	coord := shutdown.NewCoordinator()
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); d.Run(ctx, cmdSub, coord) }()
	go func() { defer wg.Done(); l.Run(ctx, evSub, coord) }()
	go func() { defer wg.Done(); sim.Run(ctx, coord) }()

	// Let everything spin up and exchange at least one message.
	time.Sleep(100 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()

	coord.Shutdown()
	select {
	case <-stopped:
	case <-time.After(300 * time.Millisecond):
		t.Fatal("workers did not reach stopped state within one polling bound")
	}
}
