// Package events defines the broadcast event contract for evaluation
// executions. Consumers subscribe by a routing key derived from the
// use-case/workflow id.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/pkg/models"
)

type EventType string

// Topic is the bus topic all execution events are published on.
const Topic = "arbiter.events"

const EventKeyMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent  EventType = "execution:start"
	ExecutionProgressEvent EventType = "execution:progress"
	ExecutionCompletedEvent EventType = "execution:complete"
	ExecutionErrorEvent    EventType = "execution:error"

	// Per-agent events inside a batch execution.
	AgentStatusEvent EventType = "agent:status"
	AgentResultEvent EventType = "agent:result"

	// Workflow step lifecycle events.
	StepStartedEvent   EventType = "step:started"
	StepCompletedEvent EventType = "step:completed"
	StepFailedEvent    EventType = "step:failed"

	// Escalation and notification requests raised by the workflow engine.
	EscalationRaisedEvent      EventType = "escalation:raised"
	NotificationRequestedEvent EventType = "notification:requested"
)

type AgentStatusValue string

const (
	AgentStatusRunning AgentStatusValue = "running"
	AgentStatusError   AgentStatusValue = "error"
)

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	ExecutionID string         `json:"execution_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, executionID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		ExecutionID: executionID,
		Metadata:    make(map[string]any),
	}
}

type ExecutionStarted struct {
	BaseEvent

	WorkflowID string   `json:"workflow_id,omitempty"`
	AgentIDs   []string `json:"agent_ids,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionProgress struct {
	BaseEvent

	Progress int `json:"progress"`
}

func (e ExecutionProgress) GetType() EventType {
	return ExecutionProgressEvent
}

type ExecutionCompleted struct {
	BaseEvent

	Status   string         `json:"status"`
	Result   map[string]any `json:"result,omitempty"`
	Duration time.Duration  `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionError struct {
	BaseEvent

	Error string `json:"error"`
}

func (e ExecutionError) GetType() EventType {
	return ExecutionErrorEvent
}

type AgentStatus struct {
	BaseEvent

	AgentID string           `json:"agent_id"`
	Status  AgentStatusValue `json:"status"`
	Error   string           `json:"error,omitempty"`
}

func (e AgentStatus) GetType() EventType {
	return AgentStatusEvent
}

type AgentResult struct {
	BaseEvent

	AgentID string                 `json:"agent_id"`
	Result  *models.AnalysisResult `json:"result"`
}

func (e AgentResult) GetType() EventType {
	return AgentResultEvent
}

type StepStarted struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	StepID     string `json:"step_id"`
	Attempt    int    `json:"attempt"`
}

func (e StepStarted) GetType() EventType {
	return StepStartedEvent
}

type StepCompleted struct {
	BaseEvent

	WorkflowID string        `json:"workflow_id"`
	StepID     string        `json:"step_id"`
	Status     string        `json:"status"`
	Duration   time.Duration `json:"duration"`
}

func (e StepCompleted) GetType() EventType {
	return StepCompletedEvent
}

type StepFailed struct {
	BaseEvent

	WorkflowID string        `json:"workflow_id"`
	StepID     string        `json:"step_id"`
	Error      string        `json:"error"`
	Duration   time.Duration `json:"duration"`
}

func (e StepFailed) GetType() EventType {
	return StepFailedEvent
}

type EscalationRaised struct {
	BaseEvent

	WorkflowID   string `json:"workflow_id"`
	StepID       string `json:"step_id"`
	EscalationID string `json:"escalation_id"`
	Error        string `json:"error"`
}

func (e EscalationRaised) GetType() EventType {
	return EscalationRaisedEvent
}

type NotificationRequested struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	StepID     string `json:"step_id"`
	Channel    string `json:"channel"`
	Message    string `json:"message"`
}

func (e NotificationRequested) GetType() EventType {
	return NotificationRequestedEvent
}
