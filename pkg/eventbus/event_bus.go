// Package eventbus provides the broadcast channel carrying execution events
// to monitoring consumers. Only the event contract is fixed; the transport
// behind the interface is interchangeable.
package eventbus

import (
	"context"

	"github.com/arbiterhq/arbiter/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
