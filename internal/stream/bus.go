// Package stream carries events between the risk manager and the rest of the
// platform. The Bus interface hides the transport; the real implementation
// rides on Redis Streams with consumer groups, and MemoryBus backs tests and
// dry runs.
package stream

import (
	"context"
	"errors"
	"time"
)

// ErrHalt is returned by a handler to stop consuming gracefully. Consume
// acknowledges the message and returns nil.
var ErrHalt = errors.New("halt consuming")

// Message is a single delivered event.
type Message struct {
	ID        string
	Stream    string
	Key       string
	Payload   []byte
	Timestamp time.Time
}

// Handler processes one message. A returned error other than ErrHalt is
// logged by the bus and consumption continues; the engine has no retry logic
// of its own.
type Handler func(ctx context.Context, msg *Message) error

// Bus publishes and consumes keyed messages on named streams.
type Bus interface {
	// Publish appends a message to a stream.
	Publish(ctx context.Context, stream, key string, payload []byte) error

	// Consume delivers messages to handler in arrival order until ctx is
	// canceled or the handler returns ErrHalt. Messages are handled strictly
	// one at a time; the bus never reorders or parallelizes.
	Consume(ctx context.Context, stream, group, consumer string, handler Handler) error

	// Health verifies connectivity to the transport.
	Health(ctx context.Context) error

	Close() error
}
