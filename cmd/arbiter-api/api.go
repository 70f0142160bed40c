// Package main provides the Arbiter API server.
package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/arbiterhq/arbiter/pkg/batch"
	"github.com/arbiterhq/arbiter/pkg/cmd"
	"github.com/arbiterhq/arbiter/pkg/engine"
	"github.com/arbiterhq/arbiter/pkg/eventbus"
	"github.com/arbiterhq/arbiter/pkg/persistence"
	"github.com/arbiterhq/arbiter/pkg/pipeline"
	"github.com/arbiterhq/arbiter/pkg/registry"
	"github.com/arbiterhq/arbiter/pkg/services"
	"github.com/arbiterhq/arbiter/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	redisURL    string
	tracer      trace.Tracer
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	redisURL string,
) *API {
	return &API{
		logger:      logger,
		persistence: store,
		registry:    reg,
		eventBus:    eventBus,
		redisURL:    redisURL,
	}
}

func (a *API) App(ctx context.Context) (*fiber.App, error) {
	agents, err := cmd.NewPipelineAgents(a.registry)
	if err != nil {
		return nil, err
	}

	orchestrator := pipeline.NewOrchestrator(pipeline.DefaultConfig(), agents, a.logger)
	if a.tracer != nil {
		orchestrator = orchestrator.WithTracer(a.tracer)
	}

	gate := engine.NewPollingGate(a.persistence.Approvals(), time.Second)

	eng := engine.NewEngine(a.persistence, a.registry, gate, a.logger).WithEventBus(a.eventBus)
	if a.tracer != nil {
		eng = eng.WithTracer(a.tracer)
	}

	redisOptions, err := redis.ParseURL(a.redisURL)
	if err != nil {
		return nil, err
	}

	queue := batch.NewQueue(redis.NewClient(redisOptions), a.persistence, a.logger, batch.DefaultConfig())

	evaluationService := services.NewEvaluationService(orchestrator, a.persistence, a.logger)
	executionService := services.NewExecutionService(eng, queue, a.persistence, a.logger)
	approvalService := services.NewApprovalService(a.persistence, a.logger)

	handlers := web.NewAPIHandlers(evaluationService, executionService, approvalService, a.persistence)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Arbiter API")
	})

	handlers.RegisterRoutes(app)

	a.logger.InfoContext(ctx, "API wired", "agents", a.registry.AgentIDs())

	return app, nil
}

func (a *API) Start(ctx context.Context, port int) error {
	app, err := a.App(ctx)
	if err != nil {
		return err
	}

	return app.Listen(":" + strconv.Itoa(port))
}
