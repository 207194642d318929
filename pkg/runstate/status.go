// Package runstate maps run records onto result statuses and extracts their outputs.
package runstate

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/subflow/pkg/models"
)

// Record is the part of a run record the coordinator needs.
type Record interface {
	GetID() string
	GetMetadata() map[string]any
}

// StatusReporting is implemented by run records that expose a first-class status.
type StatusReporting interface {
	GetStatus() string
}

// ReplyLoader loads the messages of a run with the given role.
type ReplyLoader interface {
	LoadMessagesByRun(ctx context.Context, runRef string, role models.MessageRole) ([]*models.Message, error)
}

// Resolver decides the status of a record, or reports that it cannot.
type Resolver interface {
	Resolve(ctx context.Context, record Record) (models.ResultStatus, bool, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, record Record) (models.ResultStatus, bool, error)

func (f ResolverFunc) Resolve(ctx context.Context, record Record) (models.ResultStatus, bool, error) {
	return f(ctx, record)
}

// Chain asks each resolver in order and falls back to pending when none decides.
type Chain []Resolver

// DefaultChain resolves the explicit status first and the reply heuristic second.
func DefaultChain(replies ReplyLoader) Chain {
	return Chain{ExplicitStatus{}, ReplyPresence{Replies: replies}}
}

func (c Chain) Resolve(ctx context.Context, record Record) (models.ResultStatus, error) {
	for _, resolver := range c {
		status, ok, err := resolver.Resolve(ctx, record)
		if err != nil {
			return "", err
		}

		if ok {
			return status, nil
		}
	}

	return models.ResultStatusPending, nil
}

// ExplicitStatus maps the status reported by the record itself.
type ExplicitStatus struct{}

func (ExplicitStatus) Resolve(_ context.Context, record Record) (models.ResultStatus, bool, error) {
	reporting, ok := record.(StatusReporting)
	if !ok {
		return "", false, nil
	}

	status, known := MapRunStatus(reporting.GetStatus())

	return status, known, nil
}

// MapRunStatus translates a raw run status. Unknown values are not mapped.
func MapRunStatus(raw string) (models.ResultStatus, bool) {
	switch models.RunStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case models.RunStatusCompleted, models.RunStatusFinished:
		return models.ResultStatusCompleted, true
	case models.RunStatusFailed, models.RunStatusError:
		return models.ResultStatusFailed, true
	case models.RunStatusRunning, models.RunStatusProcessing:
		return models.ResultStatusRunning, true
	default:
		return "", false
	}
}

// ReplyPresence treats a run with at least one system reply as completed. Some run
// records never get an explicit status; a reply is the only sign they finished.
type ReplyPresence struct {
	Replies ReplyLoader
}

func (r ReplyPresence) Resolve(ctx context.Context, record Record) (models.ResultStatus, bool, error) {
	if r.Replies == nil {
		return "", false, nil
	}

	replies, err := r.Replies.LoadMessagesByRun(ctx, record.GetID(), models.MessageRoleAssistant)
	if err != nil {
		return "", false, fmt.Errorf("failed to load replies for run %s: %w", record.GetID(), err)
	}

	if len(replies) > 0 {
		return models.ResultStatusCompleted, true, nil
	}

	return "", false, nil
}

// ErrorMessage returns the failure message stored on a failed record.
func ErrorMessage(record Record) string {
	if message, ok := record.GetMetadata()[models.MetadataErrorMessage].(string); ok && message != "" {
		return message
	}

	return "sub-workflow execution failed"
}
