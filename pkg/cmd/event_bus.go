package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/arbiterhq/arbiter/pkg/channels/gochannel"
	"github.com/arbiterhq/arbiter/pkg/channels/kafka"
	"github.com/arbiterhq/arbiter/pkg/eventbus"
)

// NewEventBus creates the event bus for the given provider. The gochannel
// provider is in-process only; kafka is for multi-process deployments.
func NewEventBus(provider, serviceName string, logger *slog.Logger) eventbus.EventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create gochannel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("unsupported event bus provider: " + provider)
	}
}
