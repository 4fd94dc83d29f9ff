// Package bus abstracts the publish/subscribe transport connecting the bridge
// to its display and command producers. Delivery is fire-and-forget: a failed
// publish is the caller's to log and drop, and subscribers poll with a bounded
// timeout so their loops stay responsive to shutdown.
package bus

import (
	"context"
	"errors"
	"time"
)

// Channel names shared with the display process.
const (
	// EventChannel carries outbound typed events from the bridge.
	EventChannel = "hardware:out"
	// CommandChannel carries inbound commands to the bridge.
	CommandChannel = "hardware:in"
)

// ErrReceiveTimeout reports that a bounded receive attempt elapsed without a
// message. It is the expected idle result, not a failure.
var ErrReceiveTimeout = errors.New("bus: receive timed out")

// DefaultReceiveTimeout bounds one subscriber poll attempt.
const DefaultReceiveTimeout = 100 * time.Millisecond

// Publisher writes payloads to a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Subscription is a single-channel inbound message stream.
type Subscription interface {
	// Receive waits up to timeout for one payload. Returns ErrReceiveTimeout
	// when no message arrived in time.
	Receive(ctx context.Context, timeout time.Duration) ([]byte, error)
	Close() error
}

// Bus is a full pub/sub capability: publishing plus subscription management.
type Bus interface {
	Publisher
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	// Ping verifies the transport is reachable, used once at startup.
	Ping(ctx context.Context) error
	Close() error
}
