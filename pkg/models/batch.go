package models

import "time"

type BatchStatus string

const (
	BatchStatusQueued    BatchStatus = "queued"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusPartial   BatchStatus = "partial"
	BatchStatusFailed    BatchStatus = "failed"
	BatchStatusCancelled BatchStatus = "cancelled"
)

// BatchRequest asks for a set of agents to evaluate one artifact. An empty
// AgentIDs set means "all enabled agents".
type BatchRequest struct {
	ID       string   `json:"id"`
	AgentIDs []string `json:"agent_ids,omitempty"`
	Artifact Artifact `json:"artifact" validate:"required"`
	Priority int      `json:"priority,omitempty"`
}

// AgentFailure records one isolated per-agent failure inside a batch.
type AgentFailure struct {
	AgentID string `json:"agent_id"`
	Error   string `json:"error"`
}

// BatchExecution is the durable record of one batch run. Status is derived
// only after every agent settles: failed when none succeeded, partial when
// some failed, completed otherwise.
type BatchExecution struct {
	ID         string                     `json:"id"`
	AgentIDs   []string                   `json:"agent_ids"`
	Artifact   Artifact                   `json:"artifact"`
	Priority   int                        `json:"priority,omitempty"`
	Status     BatchStatus                `json:"status"`
	Progress   int                        `json:"progress"`
	Results    map[string]*AnalysisResult `json:"results,omitempty"`
	Failures   []AgentFailure             `json:"failures,omitempty"`
	Attempts   int                        `json:"attempts"`
	CreatedAt  time.Time                  `json:"created_at"`
	StartedAt  *time.Time                 `json:"started_at,omitempty"`
	FinishedAt *time.Time                 `json:"finished_at,omitempty"`
}

// DeriveBatchStatus computes the final status from settled outcomes.
func DeriveBatchStatus(succeeded, failed int) BatchStatus {
	switch {
	case succeeded == 0 && failed > 0:
		return BatchStatusFailed
	case failed > 0:
		return BatchStatusPartial
	default:
		return BatchStatusCompleted
	}
}
