package models

import "time"

type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepExecution records the runtime state of one step of one execution.
type StepExecution struct {
	StepID     string        `json:"step_id"`
	Status     StepStatus    `json:"status"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Result     any           `json:"result,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// ExecutionContext is the mutable data a workflow execution threads through
// its steps. StepResults is keyed by step id.
type ExecutionContext struct {
	Input       map[string]any `json:"input,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
	StepResults map[string]any `json:"step_results,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ExecutionMetrics accumulates per-execution counters. StepDurations is
// recorded exactly once per executed step; ErrorCount once per terminal
// step failure; RetryCount once per retry attempt.
type ExecutionMetrics struct {
	StepDurations map[string]time.Duration `json:"step_durations"`
	RetryCount    int                      `json:"retry_count"`
	ErrorCount    int                      `json:"error_count"`
	FlagCount     int                      `json:"flag_count"`
	TotalDuration time.Duration            `json:"total_duration,omitempty"`
}

// WorkflowExecution is one concrete run of a workflow. Steps always has the
// same length and step-id ordering as the defining workflow's Steps,
// regardless of skips and jumps.
type WorkflowExecution struct {
	ID          string           `json:"id"`
	WorkflowID  string           `json:"workflow_id"`
	Status      ExecutionStatus  `json:"status"`
	CurrentStep string           `json:"current_step,omitempty"`
	Steps       []StepExecution  `json:"steps"`
	Context     ExecutionContext `json:"context"`
	Flags       []Flag           `json:"flags,omitempty"`
	Metrics     ExecutionMetrics `json:"metrics"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
}

// StepResult lets a service action steer the execution: jump to another
// step or stop consuming the remaining steps. Actions that return any other
// value contribute plain step data.
type StepResult struct {
	Data               any    `json:"data,omitempty"`
	NextStep           string `json:"next_step,omitempty"`
	SkipRemainingSteps bool   `json:"skip_remaining_steps,omitempty"`
}
