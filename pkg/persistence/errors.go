// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrRunNotFound indicates a run record was not found by the given identifier.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunAlreadyExists indicates a run with the same identifier already exists.
	ErrRunAlreadyExists = errors.New("run already exists")

	// ErrInvalidID indicates an identifier that cannot be stored safely.
	ErrInvalidID = errors.New("invalid identifier")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save")
	WorkflowID string // Workflow ID if applicable
	Err        error  // Underlying error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// RunError wraps run and message errors with the run they concern.
type RunError struct {
	Op    string // Operation being performed
	RunID string // Run ID
	Err   error  // Underlying error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s operation failed for run %s: %v", e.Op, e.RunID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func (e *RunError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRunError creates a new run error with context.
func NewRunError(op, runID string, err error) *RunError {
	return &RunError{
		Op:    op,
		RunID: runID,
		Err:   err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsRunNotFound checks if an error indicates a run was not found.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
