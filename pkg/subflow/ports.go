package subflow

import (
	"context"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/runstate"
)

// Workflows resolves workflow references. Unknown references return an error wrapping ErrWorkflowNotFound.
type Workflows interface {
	LoadWorkflow(ctx context.Context, ref string) (*models.Workflow, error)
}

// Runs creates and loads run records. Unknown references return an error wrapping ErrSessionNotFound.
type Runs interface {
	CreateRun(ctx context.Context, workflow *models.Workflow, name string, metadata map[string]any) (runstate.Record, error)
	LoadRun(ctx context.Context, ref string) (runstate.Record, error)
}

// IdempotentRuns is implemented by run stores that can find the run created for an idempotency key.
// A miss returns an error wrapping ErrSessionNotFound.
type IdempotentRuns interface {
	FindRunByIdempotencyKey(ctx context.Context, key string) (runstate.Record, error)
}

// Messages stores trigger messages and reads the replies of a run.
type Messages interface {
	runstate.ReplyLoader

	CreateMessage(ctx context.Context, runRef string, role models.MessageRole, content string, metadata map[string]any) (*models.Message, error)
}

// Queue is the durable, at-least-once channel behind fire-and-forget calls.
type Queue interface {
	Enqueue(ctx context.Context, item models.QueueItem) error
}

// Processor starts processing of a run from its trigger message.
type Processor interface {
	ProcessMessage(ctx context.Context, message *models.Message) error
}
