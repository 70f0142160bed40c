package models

import "time"

// Severity ranks a finding. Critical > high > medium > low.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the numeric ordering of the severity, higher is worse.
// Unknown severities rank below low so malformed flags never outrank real ones.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Flag is a discrete severity-tagged finding raised by an agent.
type Flag struct {
	ID       string         `json:"id"`
	Severity Severity       `json:"severity" validate:"oneof=low medium high critical"`
	Type     string         `json:"type"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

// AnalysisResult is the outcome of one agent analyzing one artifact.
// Immutable once created.
type AnalysisResult struct {
	AgentID        string         `json:"agent_id"`
	Score          int            `json:"score"      validate:"min=0,max=100"`
	Confidence     float64        `json:"confidence" validate:"min=0,max=1"`
	Flags          []Flag         `json:"flags"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	ProcessingTime time.Duration  `json:"processing_time"`
}

// FlagsAtLeast returns the result's flags at or above the given severity.
func (r *AnalysisResult) FlagsAtLeast(min Severity) []Flag {
	flags := make([]Flag, 0, len(r.Flags))
	for _, f := range r.Flags {
		if f.Severity.Rank() >= min.Rank() {
			flags = append(flags, f)
		}
	}

	return flags
}
