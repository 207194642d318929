package subflow

import "errors"

var (
	// ErrUnsupportedMode is returned for an execution mode the coordinator does not know.
	ErrUnsupportedMode = errors.New("unsupported execution mode")

	// ErrInvalidInput is returned when input data does not match the workflow's input schema.
	ErrInvalidInput = errors.New("invalid input data")

	// ErrWorkflowNotFound is returned by Workflows when the reference resolves to nothing.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrSessionNotFound is returned by Runs when the run record does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrMissingWorkflowRef marks a request or queue item without a workflow reference.
	ErrMissingWorkflowRef = errors.New("workflow reference is required")

	// ErrNoQueue is returned for fire-and-forget calls on a coordinator built without a queue.
	ErrNoQueue = errors.New("no execution queue configured")
)

// ErrRunFinished is returned when reporting on a run that already completed or failed.
var ErrRunFinished = errors.New("run already finished")
