package eventbus_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/pkg/channels/gochannel"
	"github.com/arbiterhq/arbiter/pkg/eventbus"
	"github.com/arbiterhq/arbiter/pkg/events"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	logger := watermill.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	pub, sub, err := gochannel.CreateTestChannel(logger)
	require.NoError(t, err)

	return eventbus.NewWatermillEventBus(pub, sub)
}

func TestPublishSubscribeRoundtrip(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.AgentResult, 1)

	err := bus.Handle(events.AgentResultEvent, func(_ context.Context, event any) error {
		result, ok := event.(*events.AgentResult)
		if ok {
			received <- result
		}

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	published := events.AgentResult{
		BaseEvent: events.NewBaseEvent(events.AgentResultEvent, "batch-123"),
		AgentID:   "security",
	}

	require.NoError(t, bus.Publish(ctx, "batch-123", published))

	select {
	case event := <-received:
		assert.Equal(t, "security", event.AgentID)
		assert.Equal(t, "batch-123", event.ExecutionID)
		assert.Equal(t, events.AgentResultEvent, event.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestUnhandledEventTypesAreIgnored(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.ExecutionCompleted, 1)

	err := bus.Handle(events.ExecutionCompletedEvent, func(_ context.Context, event any) error {
		if completed, ok := event.(*events.ExecutionCompleted); ok {
			received <- completed
		}

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for progress events; they are acked and dropped.
	progress := events.ExecutionProgress{
		BaseEvent: events.NewBaseEvent(events.ExecutionProgressEvent, "batch-123"),
		Progress:  50,
	}
	require.NoError(t, bus.Publish(ctx, "batch-123", progress))

	completed := events.ExecutionCompleted{
		BaseEvent: events.NewBaseEvent(events.ExecutionCompletedEvent, "batch-123"),
		Status:    "completed",
	}
	require.NoError(t, bus.Publish(ctx, "batch-123", completed))

	select {
	case event := <-received:
		assert.Equal(t, "completed", event.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestGenerateIDUnique(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
