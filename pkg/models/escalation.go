package models

import "time"

// Escalation is the durable record created when a step fails beyond
// recovery and is configured to reach a human/ops channel.
type Escalation struct {
	ID           string              `json:"id"`
	ExecutionID  string              `json:"execution_id"`
	WorkflowID   string              `json:"workflow_id"`
	StepID       string              `json:"step_id"`
	Error        string              `json:"error"`
	Notification *NotificationPolicy `json:"notification,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Approval is a pending or resolved human-approval gate for one step.
type Approval struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	StepID      string         `json:"step_id"`
	Status      ApprovalStatus `json:"status"`
	DecidedBy   string         `json:"decided_by,omitempty"`
	Comment     string         `json:"comment,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	DecidedAt   *time.Time     `json:"decided_at,omitempty"`
}
