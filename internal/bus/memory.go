package bus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// subscriberBuffer bounds each in-memory subscription. A slow subscriber
// drops messages rather than stalling the publisher, matching the
// fire-and-forget contract of the real transport.
const subscriberBuffer = 64

// MemoryBus is an in-process Bus used by tests and dev mode. Semantics mirror
// Redis pub/sub: no persistence, and a publish with no subscribers vanishes.
type MemoryBus struct {
	mu          sync.Mutex
	subscribers map[string]map[string]chan []byte
	closed      bool
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subscribers: make(map[string]map[string]chan []byte)}
}

// Ping always succeeds while the bus is open.
func (b *MemoryBus) Ping(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("bus closed")
	}
	return nil
}

// Publish delivers the payload to every current subscriber of the channel.
// Full subscriber buffers are skipped.
func (b *MemoryBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("bus closed")
	}
	for _, ch := range b.subscribers[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a new subscription on the channel.
func (b *MemoryBus) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("bus closed")
	}
	id := uuid.NewString()
	ch := make(chan []byte, subscriberBuffer)
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[string]chan []byte)
	}
	b.subscribers[channel][id] = ch
	return &memorySubscription{bus: b, channel: channel, id: id, ch: ch}, nil
}

// Close drops all subscriptions and rejects further use.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subscribers {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
	}
	return nil
}

func (b *MemoryBus) unsubscribe(channel, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs := b.subscribers[channel]; subs != nil {
		if ch, ok := subs[id]; ok {
			close(ch)
			delete(subs, id)
		}
	}
}

type memorySubscription struct {
	bus     *MemoryBus
	channel string
	id      string
	ch      chan []byte

	closeOnce sync.Once
}

func (s *memorySubscription) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultReceiveTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload, ok := <-s.ch:
		if !ok {
			return nil, errors.New("subscription closed")
		}
		return payload, nil
	case <-timer.C:
		return nil, ErrReceiveTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *memorySubscription) Close() error {
	s.closeOnce.Do(func() {
		s.bus.unsubscribe(s.channel, s.id)
	})
	return nil
}
