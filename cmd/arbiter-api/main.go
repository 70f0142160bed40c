package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/arbiterhq/arbiter/pkg/cmd"
	"github.com/arbiterhq/arbiter/pkg/log"
	"github.com/arbiterhq/arbiter/pkg/otelhelper"
)

const defaultPort = 9099

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "arbiter-api",
		Usage:                 "Evaluate generated text and manage evaluation workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL backing the batch queue",
				Value:   "redis://localhost:6379",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OTLP trace export",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Arbiter API")

			registry := cmd.NewRegistry(logger)
			persistence := cmd.NewPersistence(command.String("database-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "arbiter-api", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api := NewAPI(logger, persistence, registry, eventBus, command.String("redis-url"))

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "arbiter-api")
				if err != nil {
					return err
				}

				api.tracer = tracer
			}

			if err := api.Start(ctx, command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
