package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// MemoryBus is an in-process Bus for tests and dry runs. Published messages
// are both queued for consumers and retained for inspection.
type MemoryBus struct {
	mu       sync.Mutex
	queues   map[string]chan *Message
	history  map[string][]*Message
	sequence int
	closed   bool
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		queues:  make(map[string]chan *Message),
		history: make(map[string][]*Message),
	}
}

// Publish queues the message for the stream's consumer.
func (b *MemoryBus) Publish(_ context.Context, stream, key string, payload []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("bus closed")
	}
	b.sequence++
	msg := &Message{
		ID:        fmt.Sprintf("%d-0", b.sequence),
		Stream:    stream,
		Key:       key,
		Payload:   append([]byte(nil), payload...),
		Timestamp: time.Now().UTC(),
	}
	b.history[stream] = append(b.history[stream], msg)
	queue := b.queue(stream)
	b.mu.Unlock()

	select {
	case queue <- msg:
		return nil
	default:
		return fmt.Errorf("stream %s queue full", stream)
	}
}

// Consume delivers queued messages in publish order. Group and consumer are
// accepted for interface parity but ignored.
func (b *MemoryBus) Consume(ctx context.Context, stream, _, _ string, handler Handler) error {
	b.mu.Lock()
	queue := b.queue(stream)
	b.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-queue:
			err := handler(ctx, msg)
			if errors.Is(err, ErrHalt) {
				return nil
			}
			if err != nil {
				log.Error().Err(err).Str("stream", stream).Str("id", msg.ID).Msg("handler failed")
			}
		}
	}
}

// Health always succeeds while the bus is open.
func (b *MemoryBus) Health(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("bus closed")
	}
	return nil
}

// Close marks the bus closed. Queued messages remain readable via Messages.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Messages returns a copy of everything published to the stream, in order.
func (b *MemoryBus) Messages(stream string) []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Message, len(b.history[stream]))
	copy(out, b.history[stream])
	return out
}

// queue returns the stream's channel, creating it if needed. Callers must
// hold b.mu.
func (b *MemoryBus) queue(stream string) chan *Message {
	queue, ok := b.queues[stream]
	if !ok {
		queue = make(chan *Message, 256)
		b.queues[stream] = queue
	}
	return queue
}
