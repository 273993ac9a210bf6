package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_PublishAndConsumeInOrder(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, "risk-events", "AAPL", []byte("one")))
	require.NoError(t, bus.Publish(ctx, "risk-events", "TSLA", []byte("two")))
	require.NoError(t, bus.Publish(ctx, "risk-events", "AAPL", []byte("three")))

	var seen []string
	err := bus.Consume(ctx, "risk-events", "risk-manager", "c1", func(_ context.Context, msg *Message) error {
		seen = append(seen, string(msg.Payload))
		if len(seen) == 3 {
			return ErrHalt
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, seen)
}

func TestMemoryBus_HandlerErrorsDoNotStopConsumption(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, "s", "k", []byte("bad")))
	require.NoError(t, bus.Publish(ctx, "s", "k", []byte("good")))

	var handled int
	err := bus.Consume(ctx, "s", "g", "c", func(_ context.Context, msg *Message) error {
		handled++
		if string(msg.Payload) == "bad" {
			return errors.New("boom")
		}
		return ErrHalt
	})
	require.NoError(t, err)
	assert.Equal(t, 2, handled)
}

func TestMemoryBus_ConsumeStopsOnContextCancel(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bus.Consume(ctx, "empty", "g", "c", func(context.Context, *Message) error {
		t.Fatal("no message expected")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryBus_MessagesRetainsHistory(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, "decisions", "AAPL", []byte(`{"result":"granted"}`)))
	msgs := bus.Messages("decisions")
	require.Len(t, msgs, 1)
	assert.Equal(t, "AAPL", msgs[0].Key)
	assert.JSONEq(t, `{"result":"granted"}`, string(msgs[0].Payload))
}

func TestMemoryBus_Close(t *testing.T) {
	bus := NewMemoryBus()
	require.NoError(t, bus.Health(context.Background()))
	require.NoError(t, bus.Close())
	assert.Error(t, bus.Health(context.Background()))
	assert.Error(t, bus.Publish(context.Background(), "s", "k", nil))
}
