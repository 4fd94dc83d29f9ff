package shutdown

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCoordinator_FlagIsOneDirectional(t *testing.T) {
	t.Parallel()

	c := NewCoordinator()
	assert.False(t, c.ShuttingDown())

	c.Shutdown()
	assert.True(t, c.ShuttingDown())

	// Repeated calls stay set and do not panic on the closed channel.
	c.Shutdown()
	assert.True(t, c.ShuttingDown())
}

func TestCoordinator_DoneUnblocksSelect(t *testing.T) {
	t.Parallel()

	c := NewCoordinator()

	select {
	case <-c.Done():
		t.Fatal("done channel closed before shutdown")
	default:
	}

	c.Shutdown()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("done channel did not close after shutdown")
	}
}

func TestCoordinator_ConcurrentShutdown(t *testing.T) {
	t.Parallel()

	c := NewCoordinator()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Shutdown()
		}()
	}
	wg.Wait()
	assert.True(t, c.ShuttingDown())
}
