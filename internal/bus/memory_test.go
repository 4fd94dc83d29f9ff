package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_DeliversToSubscriber(t *testing.T) {
	t.Parallel()

	b := NewMemoryBus()
	defer b.Close()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, EventChannel)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, b.Publish(ctx, EventChannel, []byte(`{"type":"heartbeat"}`)))

	payload, err := sub.Receive(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"heartbeat"}`, string(payload))
}

func TestMemoryBus_PublishWithoutSubscribersIsDropped(t *testing.T) {
	t.Parallel()

	b := NewMemoryBus()
	defer b.Close()
	ctx := context.Background()

	// No subscriber yet: the message vanishes, as with real pub/sub.
	require.NoError(t, b.Publish(ctx, EventChannel, []byte("lost")))

	sub, err := b.Subscribe(ctx, EventChannel)
	require.NoError(t, err)
	defer sub.Close()

	_, err = sub.Receive(ctx, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrReceiveTimeout)
}

func TestMemoryBus_ChannelsAreIsolated(t *testing.T) {
	t.Parallel()

	b := NewMemoryBus()
	defer b.Close()
	ctx := context.Background()

	events, err := b.Subscribe(ctx, EventChannel)
	require.NoError(t, err)
	defer events.Close()
	commands, err := b.Subscribe(ctx, CommandChannel)
	require.NoError(t, err)
	defer commands.Close()

	require.NoError(t, b.Publish(ctx, CommandChannel, []byte("cmd")))

	payload, err := commands.Receive(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "cmd", string(payload))

	_, err = events.Receive(ctx, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrReceiveTimeout)
}

func TestMemoryBus_ReceiveHonorsContext(t *testing.T) {
	t.Parallel()

	b := NewMemoryBus()
	defer b.Close()

	sub, err := b.Subscribe(context.Background(), EventChannel)
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sub.Receive(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryBus_CloseRejectsFurtherUse(t *testing.T) {
	t.Parallel()

	b := NewMemoryBus()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, EventChannel)
	require.NoError(t, err)

	require.NoError(t, b.Close())
	assert.Error(t, b.Ping(ctx))
	assert.Error(t, b.Publish(ctx, EventChannel, []byte("x")))

	_, err = sub.Receive(ctx, 20*time.Millisecond)
	assert.Error(t, err)

	// Closing a subscription after the bus is gone must not panic.
	assert.NoError(t, sub.Close())
}

func TestMemoryBus_SlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	t.Parallel()

	b := NewMemoryBus()
	defer b.Close()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, EventChannel)
	require.NoError(t, err)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			b.Publish(ctx, EventChannel, []byte("burst"))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}
