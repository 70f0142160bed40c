// Package cmd provides common initialization for the binaries: event bus,
// persistence and the agent/service registry.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arbiterhq/arbiter/pkg/agents/accuracy"
	"github.com/arbiterhq/arbiter/pkg/agents/bias"
	"github.com/arbiterhq/arbiter/pkg/agents/integrity"
	"github.com/arbiterhq/arbiter/pkg/agents/security"
	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/protocol"
	"github.com/arbiterhq/arbiter/pkg/registry"
)

func registerNativeAgents(reg *registry.Registry) {
	reg.RegisterAgent(security.NewFactory())
	reg.RegisterAgent(integrity.NewFactory())
	reg.RegisterAgent(accuracy.NewFactory())
	reg.RegisterAgent(bias.NewFactory())
}

// registerNativeServices binds the service actions declarative workflow
// steps dispatch into.
func registerNativeServices(reg *registry.Registry, logger *slog.Logger) {
	reg.RegisterService("agents", "analyze", analyzeAction(reg))
	reg.RegisterService("core", "log", logAction(logger))
	reg.RegisterService("core", "set", setAction())
	reg.RegisterService("control", "route", routeAction())
	reg.RegisterService("control", "halt", haltAction())
}

// analyzeAction runs one registered agent over the artifact carried in the
// execution input. The step's "agent" parameter selects the agent.
func analyzeAction(reg *registry.Registry) func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any) (any, error) {
	return func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any) (any, error) {
		agentID, _ := params["agent"].(string)
		if agentID == "" {
			return nil, errors.New("agents/analyze requires an 'agent' parameter")
		}

		config, _ := params["config"].(map[string]any)

		agent, err := reg.CreateAgent(agentID, config)
		if err != nil {
			return nil, err
		}

		artifact, err := artifactFromInput(execCtx, params)
		if err != nil {
			return nil, err
		}

		return agent.Analyze(ctx, artifact)
	}
}

func artifactFromInput(execCtx models.ExecutionContext, params map[string]any) (models.Artifact, error) {
	text, _ := params["text"].(string)
	if text == "" {
		text, _ = execCtx.Input["text"].(string)
	}

	if text == "" {
		return models.Artifact{}, errors.New("no artifact text in step parameters or execution input")
	}

	metadata, _ := execCtx.Input["metadata"].(map[string]any)

	return models.Artifact{Text: text, Metadata: metadata}, nil
}

func logAction(logger *slog.Logger) func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any) (any, error) {
	return func(ctx context.Context, _ models.ExecutionContext, params map[string]any) (any, error) {
		message, _ := params["message"].(string)
		logger.InfoContext(ctx, "Workflow log step", "message", message)

		return message, nil
	}
}

// setAction returns the step's "value" parameter so later steps can read
// it from steps.<id>.
func setAction() func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any) (any, error) {
	return func(_ context.Context, _ models.ExecutionContext, params map[string]any) (any, error) {
		value, ok := params["value"]
		if !ok {
			return nil, errors.New("core/set requires a 'value' parameter")
		}

		return value, nil
	}
}

// routeAction jumps the execution to the step named by the "next"
// parameter.
func routeAction() func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any) (any, error) {
	return func(_ context.Context, _ models.ExecutionContext, params map[string]any) (any, error) {
		next, _ := params["next"].(string)
		if next == "" {
			return nil, errors.New("control/route requires a 'next' parameter")
		}

		return &models.StepResult{NextStep: next}, nil
	}
}

// haltAction completes the execution, skipping every remaining step.
func haltAction() func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any) (any, error) {
	return func(_ context.Context, _ models.ExecutionContext, params map[string]any) (any, error) {
		reason, _ := params["reason"].(string)

		return &models.StepResult{
			Data:               fmt.Sprintf("halted: %s", reason),
			SkipRemainingSteps: true,
		}, nil
	}
}

func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	registerNativeAgents(reg)
	registerNativeServices(reg, logger)

	return reg
}

// NewPipelineAgents binds one agent instance per pipeline stage. Stage
// names double as agent ids.
func NewPipelineAgents(reg *registry.Registry) (map[models.Stage]protocol.Agent, error) {
	agents := make(map[models.Stage]protocol.Agent, len(models.PipelineStages))

	for _, stage := range models.PipelineStages {
		agent, err := reg.CreateAgent(string(stage), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create agent for stage %s: %w", stage, err)
		}

		agents[stage] = agent
	}

	return agents, nil
}
