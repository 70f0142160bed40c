package web

import "github.com/arbiterhq/arbiter/pkg/models"

// EvaluationRequest submits one artifact for a full pipeline run.
type EvaluationRequest struct {
	Artifact models.Artifact          `json:"artifact"`
	Context  models.EvaluationContext `json:"context"`
}

// BatchSubmission queues an artifact for parallel evaluation. An empty
// agent list means all registered agents.
type BatchSubmission struct {
	AgentIDs []string        `json:"agent_ids,omitempty"`
	Artifact models.Artifact `json:"artifact"`
	Priority int             `json:"priority,omitempty"`
}

// StartExecutionRequest kicks off a workflow execution.
type StartExecutionRequest struct {
	Input    map[string]any `json:"input,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ApprovalDecisionRequest resolves a pending human-approval gate.
type ApprovalDecisionRequest struct {
	Approve   bool   `json:"approve"`
	DecidedBy string `json:"decided_by"`
	Comment   string `json:"comment,omitempty"`
}
