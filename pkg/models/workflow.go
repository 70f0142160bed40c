package models

import "time"

type StepType string

const (
	StepTypeDetect  StepType = "detect"
	StepTypeAnalyze StepType = "analyze"
	StepTypeDecide  StepType = "decide"
	StepTypeExecute StepType = "execute"
	StepTypeVerify  StepType = "verify"
	StepTypeReport  StepType = "report"
)

// ConditionOperator is the comparison applied by a step condition.
type ConditionOperator string

const (
	OperatorEquals    ConditionOperator = "="
	OperatorNotEquals ConditionOperator = "!="
	OperatorGreater   ConditionOperator = ">"
	OperatorLess      ConditionOperator = "<"
	OperatorContains  ConditionOperator = "contains"
	OperatorExists    ConditionOperator = "exists"
	OperatorIn        ConditionOperator = "in"
	OperatorNotIn     ConditionOperator = "not_in"
)

// Condition compares a dot-path field of the execution context against a
// value. CombineWith joins this condition to the accumulated result of all
// conditions before it; evaluation is strictly left to right.
type Condition struct {
	Field       string            `json:"field"    validate:"required"`
	Operator    ConditionOperator `json:"operator" validate:"required"`
	Value       any               `json:"value,omitempty"`
	CombineWith string            `json:"combine_with,omitempty" validate:"omitempty,oneof=and or"`
}

// RetryPolicy configures capped exponential backoff for a step.
// Delay for retry n is min(DelayMs × BackoffMultiplier^(n-1), MaxDelayMs).
type RetryPolicy struct {
	Attempts          int     `json:"attempts"           validate:"min=0"`
	DelayMs           int64   `json:"delay_ms"           validate:"min=0"`
	BackoffMultiplier float64 `json:"backoff_multiplier" validate:"min=0"`
	MaxDelayMs        int64   `json:"max_delay_ms"       validate:"min=0"`
}

// NotificationPolicy names the channel notified when a step fails beyond
// recovery. Delivery mechanics live outside the engine; the engine only
// publishes the request.
type NotificationPolicy struct {
	Channel string `json:"channel"`
	Message string `json:"message,omitempty"`
}

// ErrorHandling describes what happens when a step exhausts its retries.
type ErrorHandling struct {
	Retry        *RetryPolicy        `json:"retry,omitempty"`
	Fallback     string              `json:"fallback,omitempty"`
	Escalate     bool                `json:"escalate,omitempty"`
	Notification *NotificationPolicy `json:"notification,omitempty"`
}

// WorkflowStep is the declarative definition of one step. Service and
// Action name a capability in the registry; bindings are validated when the
// workflow is loaded, not when the step runs.
type WorkflowStep struct {
	ID                    string         `json:"id"      validate:"required"`
	Name                  string         `json:"name"    validate:"required"`
	Type                  StepType       `json:"type"    validate:"required,oneof=detect analyze decide execute verify report"`
	Agent                 string         `json:"agent,omitempty"`
	Service               string         `json:"service" validate:"required"`
	Action                string         `json:"action"  validate:"required"`
	Parameters            map[string]any `json:"parameters,omitempty"`
	Conditions            []Condition    `json:"conditions,omitempty"`
	TimeoutMs             int64          `json:"timeout_ms,omitempty"`
	HumanApprovalRequired bool           `json:"human_approval_required,omitempty"`
	ErrorHandling         *ErrorHandling `json:"error_handling,omitempty"`
}

// Workflow is a declarative, ordered list of steps.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name" validate:"required,min=3"`
	Description string         `json:"description,omitempty"`
	Steps       []WorkflowStep `json:"steps" validate:"required,min=1,dive"`
	Variables   map[string]any `json:"variables,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// StepByID returns the definition of the named step.
func (w *Workflow) StepByID(id string) (WorkflowStep, bool) {
	for _, step := range w.Steps {
		if step.ID == id {
			return step, true
		}
	}

	return WorkflowStep{}, false
}

// StepIndex returns the position of the named step, or -1.
func (w *Workflow) StepIndex(id string) int {
	for i, step := range w.Steps {
		if step.ID == id {
			return i
		}
	}

	return -1
}
