package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	fieldKey     = "key"
	fieldPayload = "payload"

	readBlock = 5 * time.Second
	readCount = 16
)

// RedisBus implements Bus over Redis Streams. Consumption uses a consumer
// group so a restarted process resumes where the group left off instead of
// replaying the stream.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus connects a bus to the datastore.
func NewRedisBus(addr, password string, db int) *RedisBus {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  readBlock + 2*time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})
	return &RedisBus{client: client}
}

// NewRedisBusFromClient wraps an existing client, sharing its connection pool.
func NewRedisBusFromClient(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

// Publish appends the payload to the stream via XADD.
func (b *RedisBus) Publish(ctx context.Context, stream, key string, payload []byte) error {
	err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			fieldKey:     key,
			fieldPayload: payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", stream, err)
	}
	return nil
}

// Consume reads the stream through a consumer group, delivering messages one
// at a time in stream order. Handler errors are logged and the message is
// acknowledged anyway: retry policy belongs to the producer side, not here.
func (b *RedisBus) Consume(ctx context.Context, stream, group, consumer string, handler Handler) error {
	if err := b.ensureGroup(ctx, stream, group); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    readCount,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read from %s: %w", stream, err)
		}

		for _, s := range res {
			for _, entry := range s.Messages {
				msg := decodeEntry(stream, entry)
				handlerErr := handler(ctx, msg)
				if ackErr := b.client.XAck(ctx, stream, group, entry.ID).Err(); ackErr != nil {
					log.Error().Err(ackErr).Str("stream", stream).Str("id", entry.ID).Msg("ack failed")
				}
				if errors.Is(handlerErr, ErrHalt) {
					return nil
				}
				if handlerErr != nil {
					log.Error().Err(handlerErr).Str("stream", stream).Str("id", entry.ID).Msg("handler failed")
				}
			}
		}
	}
}

// Health pings the datastore.
func (b *RedisBus) Health(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (b *RedisBus) Close() error {
	return b.client.Close()
}

func (b *RedisBus) ensureGroup(ctx context.Context, stream, group string) error {
	err := b.client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", group, stream, err)
	}
	return nil
}

func decodeEntry(stream string, entry redis.XMessage) *Message {
	msg := &Message{ID: entry.ID, Stream: stream, Timestamp: time.Now().UTC()}
	if key, ok := entry.Values[fieldKey].(string); ok {
		msg.Key = key
	}
	if payload, ok := entry.Values[fieldPayload].(string); ok {
		msg.Payload = []byte(payload)
	}
	return msg
}
