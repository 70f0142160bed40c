package engine

// OutcomeKind discriminates the result of running one step.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeFailure OutcomeKind = "failure"
	OutcomeSkipped OutcomeKind = "skipped"
)

// StepOutcome makes the fallback/skip paths explicit values instead of
// errors used as control flow.
type StepOutcome struct {
	Kind OutcomeKind

	// Data is the step result on success.
	Data any

	// Err is set on failure. A failure with FallbackTo redirects execution
	// instead of ending it.
	Err        error
	FallbackTo string

	// NextStep and SkipRemaining are steering requests from the action.
	NextStep      string
	SkipRemaining bool
}

func successOutcome(data any) StepOutcome {
	return StepOutcome{Kind: OutcomeSuccess, Data: data}
}

func failureOutcome(err error) StepOutcome {
	return StepOutcome{Kind: OutcomeFailure, Err: err}
}

func skippedOutcome() StepOutcome {
	return StepOutcome{Kind: OutcomeSkipped}
}
