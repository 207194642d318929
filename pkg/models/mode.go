package models

// ExecutionMode selects how a sub-workflow is launched.
type ExecutionMode string

const (
	// ModeJob creates a run and blocks until it finishes or times out.
	ModeJob ExecutionMode = "job"
	// ModeJobAsync creates a run and returns its session reference immediately.
	ModeJobAsync ExecutionMode = "job_async"
	// ModeJobFireForget enqueues the request and returns without creating a run.
	ModeJobFireForget ExecutionMode = "job_fire_forget"
)

// IsValid reports whether the mode is one of the supported execution modes.
func (m ExecutionMode) IsValid() bool {
	switch m {
	case ModeJob, ModeJobAsync, ModeJobFireForget:
		return true
	default:
		return false
	}
}
