// Package recursion bounds nested sub-workflow calls by depth and rejects cycles.
package recursion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/subflow/pkg/models"
)

// DefaultMaxDepth is the deepest nesting allowed when no limit is configured.
const DefaultMaxDepth = 5

var (
	// ErrMaxDepthExceeded indicates the call would nest deeper than allowed.
	ErrMaxDepthExceeded = errors.New("maximum sub-workflow depth exceeded")

	// ErrCircularReference indicates the workflow is already on the call chain.
	ErrCircularReference = errors.New("circular sub-workflow reference")

	// ErrInvalidDepth indicates the caller reported a negative nesting depth.
	ErrInvalidDepth = errors.New("invalid sub-workflow depth")
)

// Error carries the call position that made the guard reject a workflow.
type Error struct {
	WorkflowRef string
	Depth       int
	MaxDepth    int
	Chain       []string
	Err         error
}

func (e *Error) Error() string {
	if errors.Is(e.Err, ErrCircularReference) {
		return fmt.Sprintf("%v: workflow %s is already in the call chain [%s]",
			e.Err, e.WorkflowRef, strings.Join(e.Chain, " -> "))
	}

	if errors.Is(e.Err, ErrInvalidDepth) {
		return fmt.Sprintf("%v: parent depth %d is negative for workflow %s",
			e.Err, e.Depth-1, e.WorkflowRef)
	}

	return fmt.Sprintf("%v: depth %d exceeds the limit of %d for workflow %s",
		e.Err, e.Depth, e.MaxDepth, e.WorkflowRef)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// Depth returns the depth the child run of parent would have.
func Depth(parent *models.ParentContext) int {
	return parent.Depth() + 1
}

// Check validates entering workflowRef from parent and returns the context for the child run.
// It has no side effects, so callers run it before creating anything.
// A negative parent depth is rejected, otherwise it would reset the limit.
func Check(parent *models.ParentContext, workflowRef string, maxDepth int) (models.ParentContext, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	depth := Depth(parent)
	if parent.Depth() < 0 {
		return models.ParentContext{}, &Error{
			WorkflowRef: workflowRef,
			Depth:       depth,
			MaxDepth:    maxDepth,
			Chain:       parent.Chain(),
			Err:         ErrInvalidDepth,
		}
	}

	if depth > maxDepth {
		return models.ParentContext{}, &Error{
			WorkflowRef: workflowRef,
			Depth:       depth,
			MaxDepth:    maxDepth,
			Chain:       parent.Chain(),
			Err:         ErrMaxDepthExceeded,
		}
	}

	if parent.Contains(workflowRef) {
		return models.ParentContext{}, &Error{
			WorkflowRef: workflowRef,
			Depth:       depth,
			MaxDepth:    maxDepth,
			Chain:       parent.Chain(),
			Err:         ErrCircularReference,
		}
	}

	return parent.Next(workflowRef), nil
}

// IsMaxDepthExceeded checks if an error came from the depth limit.
func IsMaxDepthExceeded(err error) bool {
	return errors.Is(err, ErrMaxDepthExceeded)
}

// IsInvalidDepth checks if an error came from a negative parent depth.
func IsInvalidDepth(err error) bool {
	return errors.Is(err, ErrInvalidDepth)
}

// IsCircularReference checks if an error came from cycle detection.
func IsCircularReference(err error) bool {
	return errors.Is(err, ErrCircularReference)
}
