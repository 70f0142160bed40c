package registry

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/protocol"
)

type noopAgent struct{ id string }

func (a noopAgent) ID() string {
	return a.id
}

func (a noopAgent) Analyze(_ context.Context, _ models.Artifact) (*models.AnalysisResult, error) {
	return &models.AnalysisResult{AgentID: a.id, Score: 100}, nil
}

type noopFactory struct{ id string }

func (f noopFactory) ID() string {
	return f.id
}

func (f noopFactory) Create(_ map[string]any) (protocol.Agent, error) {
	return noopAgent{id: f.id}, nil
}

func newTestRegistry() *Registry {
	reg := NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	reg.RegisterAgent(noopFactory{id: "security"})
	reg.RegisterService("test", "noop", func(_ context.Context, _ models.ExecutionContext, _ map[string]any) (any, error) {
		return nil, nil
	})

	return reg
}

func validStep(id string) models.WorkflowStep {
	return models.WorkflowStep{
		ID:      id,
		Name:    id,
		Type:    models.StepTypeExecute,
		Service: "test",
		Action:  "noop",
	}
}

func TestValidateWorkflowPasses(t *testing.T) {
	reg := newTestRegistry()

	step := validStep("analyze")
	step.Agent = "security"
	step.Conditions = []models.Condition{
		{Field: "input.score", Operator: models.OperatorGreater, Value: 50},
	}
	step.ErrorHandling = &models.ErrorHandling{Fallback: "cleanup"}

	workflow := &models.Workflow{
		ID:    "wf-ok",
		Name:  "valid workflow",
		Steps: []models.WorkflowStep{step, validStep("cleanup")},
	}

	assert.NoError(t, reg.ValidateWorkflow(workflow))
}

func TestValidateWorkflowNoSteps(t *testing.T) {
	reg := newTestRegistry()

	err := reg.ValidateWorkflow(&models.Workflow{ID: "wf-empty", Name: "empty"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no steps")
}

func TestValidateWorkflowDuplicateStepIDs(t *testing.T) {
	reg := newTestRegistry()

	workflow := &models.Workflow{
		ID:    "wf-dup",
		Name:  "duplicates",
		Steps: []models.WorkflowStep{validStep("same"), validStep("same")},
	}

	err := reg.ValidateWorkflow(workflow)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate step id")
}

func TestValidateWorkflowUnboundService(t *testing.T) {
	reg := newTestRegistry()

	step := validStep("bad")
	step.Service = "nowhere"

	err := reg.ValidateWorkflow(&models.Workflow{ID: "wf-svc", Name: "bad service", Steps: []models.WorkflowStep{step}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestValidateWorkflowUnknownAgent(t *testing.T) {
	reg := newTestRegistry()

	step := validStep("analyze")
	step.Agent = "phantom"

	err := reg.ValidateWorkflow(&models.Workflow{ID: "wf-agent", Name: "bad agent", Steps: []models.WorkflowStep{step}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent 'phantom' not registered")
}

func TestValidateWorkflowUnknownOperator(t *testing.T) {
	reg := newTestRegistry()

	step := validStep("conditional")
	step.Conditions = []models.Condition{{Field: "input.x", Operator: "~="}}

	err := reg.ValidateWorkflow(&models.Workflow{ID: "wf-op", Name: "bad operator", Steps: []models.WorkflowStep{step}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown condition operator")
}

func TestValidateWorkflowMissingFallbackTarget(t *testing.T) {
	reg := newTestRegistry()

	step := validStep("failing")
	step.ErrorHandling = &models.ErrorHandling{Fallback: "ghost"}

	err := reg.ValidateWorkflow(&models.Workflow{ID: "wf-fb", Name: "bad fallback", Steps: []models.WorkflowStep{step}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback step 'ghost' does not exist")
}

func TestAgentIDsSorted(t *testing.T) {
	reg := newTestRegistry()
	reg.RegisterAgent(noopFactory{id: "accuracy"})
	reg.RegisterAgent(noopFactory{id: "integrity"})

	assert.Equal(t, []string{"accuracy", "integrity", "security"}, reg.AgentIDs())
}

func TestCreateAgentUnregistered(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.CreateAgent("phantom", nil)

	assert.Error(t, err)
}
