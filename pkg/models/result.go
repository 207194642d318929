package models

import "maps"

// ResultStatus is the status reported to the caller of the coordinator.
type ResultStatus string

const (
	ResultStatusCompleted ResultStatus = "completed"
	ResultStatusRunning   ResultStatus = "running"
	ResultStatusPending   ResultStatus = "pending"
	ResultStatusFailed    ResultStatus = "failed"
	ResultStatusTimeout   ResultStatus = "timeout"
)

// IsTerminal reports whether a run in this status can no longer change.
func (s ResultStatus) IsTerminal() bool {
	return s == ResultStatusCompleted || s == ResultStatusFailed
}

// ExecutionResult describes the outcome of one execution attempt. Build it with
// the constructors below so that exactly one outcome shape holds at a time.
type ExecutionResult struct {
	Success      bool           `json:"success"`
	Status       ResultStatus   `json:"status"`
	SessionRef   string         `json:"session_ref,omitempty"`
	JobRef       string         `json:"job_ref,omitempty"`
	Outputs      map[string]any `json:"outputs,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ElapsedMs    int64          `json:"elapsed_ms"`
}

// CompletedResult is a finished run with its outputs.
func CompletedResult(sessionRef string, outputs map[string]any, elapsedMs int64) ExecutionResult {
	if outputs == nil {
		outputs = map[string]any{}
	}

	return ExecutionResult{
		Success:    true,
		Status:     ResultStatusCompleted,
		SessionRef: sessionRef,
		Outputs:    maps.Clone(outputs),
		ElapsedMs:  elapsedMs,
	}
}

// FailedResult is a failed run, a guard rejection or a collaborator failure.
func FailedResult(sessionRef, message string, elapsedMs int64) ExecutionResult {
	return ExecutionResult{
		Success:      false,
		Status:       ResultStatusFailed,
		SessionRef:   sessionRef,
		ErrorMessage: message,
		ElapsedMs:    elapsedMs,
	}
}

// TimeoutResult is a run that did not reach a terminal state in time. The run may still finish later.
func TimeoutResult(sessionRef, message string, elapsedMs int64) ExecutionResult {
	return ExecutionResult{
		Success:      false,
		Status:       ResultStatusTimeout,
		SessionRef:   sessionRef,
		ErrorMessage: message,
		ElapsedMs:    elapsedMs,
	}
}

// PendingResult is a deferred request: an async run or a queued job.
func PendingResult(sessionRef, jobRef string, elapsedMs int64) ExecutionResult {
	return ExecutionResult{
		Success:    true,
		Status:     ResultStatusPending,
		SessionRef: sessionRef,
		JobRef:     jobRef,
		ElapsedMs:  elapsedMs,
	}
}

// RunningResult is a status check on a run that has not finished yet.
func RunningResult(sessionRef string, elapsedMs int64) ExecutionResult {
	return ExecutionResult{
		Success:    true,
		Status:     ResultStatusRunning,
		SessionRef: sessionRef,
		ElapsedMs:  elapsedMs,
	}
}
