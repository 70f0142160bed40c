package models

import "time"

// ReportStatus is the final verdict on an evaluated artifact.
type ReportStatus string

const (
	ReportStatusPass    ReportStatus = "pass"
	ReportStatusWarning ReportStatus = "warning"
	ReportStatusFail    ReportStatus = "fail"
)

// CriticalIssue is a high or critical flag enriched with the stage that
// raised it and a remediation recommendation.
type CriticalIssue struct {
	Flag

	Stage          Stage  `json:"stage"`
	Recommendation string `json:"recommendation,omitempty"`
}

// Report is the structured evaluation document handed to audit/export
// tooling. Rendering (PDF/CSV) happens downstream.
type Report struct {
	SessionID       string                    `json:"session_id"`
	OverallScore    int                       `json:"overall_score"`
	Status          ReportStatus              `json:"status"`
	Scores          map[Stage]int             `json:"scores"`
	CriticalIssues  []CriticalIssue           `json:"critical_issues"`
	Summary         map[Severity]int          `json:"summary"`
	Recommendations []string                  `json:"recommendations"`
	StageResults    map[Stage]*AnalysisResult `json:"stage_results"`
	TerminatedEarly bool                      `json:"terminated_early"`
	GeneratedAt     time.Time                 `json:"generated_at"`
}
