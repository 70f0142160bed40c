package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"

	"github.com/arbiterhq/arbiter/pkg/batch"
	"github.com/arbiterhq/arbiter/pkg/cmd"
	"github.com/arbiterhq/arbiter/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "arbiter-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to process queued batch evaluations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
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
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Maximum agents analyzing in parallel per batch",
				Value:   batch.DefaultConfig().Concurrency,
				Sources: cli.EnvVars("BATCH_CONCURRENCY"),
			},
			&cli.StringFlag{
				Name:    "schedules-file",
				Usage:   "Path to a JSON file of recurring batch schedules",
				Value:   "",
				Sources: cli.EnvVars("SCHEDULES_FILE"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("arbiter-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Arbiter Worker")

			registry := cmd.NewRegistry(logger)

			eventBus := cmd.NewEventBus(command.String("event-bus"), "arbiter-worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			redisOptions, err := redis.ParseURL(command.String("redis-url"))
			if err != nil {
				return err
			}

			queueConfig := batch.DefaultConfig()
			queueConfig.ConsumerName = workerID
			queueConfig.Concurrency = command.Int("concurrency")

			queue := batch.NewQueue(redis.NewClient(redisOptions), persistence, logger, queueConfig)

			worker := NewWorkerManager(
				workerID,
				persistence,
				eventBus,
				logger,
				registry,
				queue,
				queueConfig.Concurrency,
				command.String("schedules-file"),
			)

			if err := worker.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
