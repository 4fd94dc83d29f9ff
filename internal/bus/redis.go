package bus

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus implements Bus over Redis pub/sub. The display process and any
// external command producers attach to the same Redis instance, typically over
// a unix socket local to the timing machine.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus connects to Redis at the given address. Addresses containing a
// path separator are treated as unix socket paths (the deployment default,
// ./redis.sock); anything else is dialed over TCP.
func NewRedisBus(addr string) *RedisBus {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "/") {
		opts.Network = "unix"
	}
	return &RedisBus{client: redis.NewClient(opts)}
}

// Ping verifies the Redis connection.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Publish writes one payload to a channel. Failures are returned to the
// caller, which logs and drops the message; there is no retry or queueing.
func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a pub/sub subscription on the given channel.
func (b *RedisBus) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	ps := b.client.Subscribe(ctx, channel)
	// Force the SUBSCRIBE handshake now so a broken connection surfaces at
	// construction instead of on the first poll.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, err
	}
	return &redisSubscription{ps: ps}, nil
}

// Close releases the underlying client connection pool.
func (b *RedisBus) Close() error {
	return b.client.Close()
}

type redisSubscription struct {
	ps *redis.PubSub
}

// Receive polls for one message with a bounded timeout. Subscription
// confirmations and pings that arrive instead of a message count as an idle
// poll.
func (s *redisSubscription) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultReceiveTimeout
	}
	raw, err := s.ps.ReceiveTimeout(ctx, timeout)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, ErrReceiveTimeout
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrReceiveTimeout
		}
		return nil, err
	}
	msg, ok := raw.(*redis.Message)
	if !ok {
		return nil, ErrReceiveTimeout
	}
	return []byte(msg.Payload), nil
}

func (s *redisSubscription) Close() error {
	return s.ps.Close()
}
