package persistence

import "errors"

var (
	ErrWorkflowNotFound   = errors.New("workflow not found")
	ErrExecutionNotFound  = errors.New("execution not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrBatchNotFound      = errors.New("batch execution not found")
	ErrApprovalNotFound   = errors.New("approval not found")
)

// IsNotFound reports whether err is any of the repository not-found
// sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrBatchNotFound) ||
		errors.Is(err, ErrApprovalNotFound)
}
