package models

import "time"

// Stage is one ordered phase of the evaluation pipeline.
type Stage string

const (
	StageSecurity  Stage = "security"
	StageIntegrity Stage = "integrity"
	StageAccuracy  Stage = "accuracy"
)

// PipelineStages lists the stages in execution order.
var PipelineStages = []Stage{StageSecurity, StageIntegrity, StageAccuracy}

type SessionStatus string

const (
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
)

// EvaluationContext carries the business context an evaluation runs under.
type EvaluationContext struct {
	Vertical    string   `json:"vertical,omitempty"`
	UseCase     string   `json:"use_case,omitempty"`
	Regulations []string `json:"regulations,omitempty"`
}

// PipelineSession is one execution of the staged evaluation pipeline.
// It is mutated only by the orchestrator that owns it and is terminal once
// Status leaves processing. AggregatedScore is set if and only if the
// session completed.
type PipelineSession struct {
	ID              string                    `json:"id"`
	StartTime       time.Time                 `json:"start_time"`
	EndTime         *time.Time                `json:"end_time,omitempty"`
	Status          SessionStatus             `json:"status"`
	Context         EvaluationContext         `json:"context"`
	Results         map[Stage]*AnalysisResult `json:"results"`
	AggregatedScore *int                      `json:"aggregated_score,omitempty"`
	Terminated      bool                      `json:"terminated_early"`
	TerminatedAt    Stage                     `json:"terminated_at_stage,omitempty"`
	Report          *Report                   `json:"report,omitempty"`
}

// RanStages returns the stages that produced a result, in pipeline order.
func (s *PipelineSession) RanStages() []Stage {
	stages := make([]Stage, 0, len(PipelineStages))

	for _, stage := range PipelineStages {
		if s.Results[stage] != nil {
			stages = append(stages, stage)
		}
	}

	return stages
}
