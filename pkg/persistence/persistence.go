// Package persistence provides the storage abstraction for workflows, runs and their messages.
package persistence

import (
	"context"

	"github.com/dukex/subflow/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	RunRepository() RunRepository
	MessageRepository() MessageRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository resolves the workflows sub-workflow calls refer to.
type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
}

// RunRepository stores run records. Runs are created once and saved on every status change.
type RunRepository interface {
	Create(ctx context.Context, run *models.Run) error
	GetByID(ctx context.Context, id string) (*models.Run, error)
	Save(ctx context.Context, run *models.Run) error

	// GetByIdempotencyKey finds the run created for a queued request carrying key.
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Run, error)
}

// MessageRepository stores the trigger message and replies of each run, oldest first.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByRun(ctx context.Context, runID string, role models.MessageRole) ([]*models.Message, error)
}
