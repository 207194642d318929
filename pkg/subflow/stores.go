package subflow

import (
	"context"
	"fmt"
	"maps"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/persistence"
	"github.com/dukex/subflow/pkg/runstate"
	"github.com/google/uuid"
)

// Stores adapts a persistence backend to the Workflows, Runs and Messages ports.
type Stores struct {
	persistence persistence.Persistence
	trigger     Processor
}

type StoresOption func(*Stores)

// WithMessageTrigger makes the creation of a user message start processing of its run,
// the way an engine watching its message store would. Leave it off where a Worker
// invokes the processor itself.
func WithMessageTrigger(processor Processor) StoresOption {
	return func(s *Stores) {
		s.trigger = processor
	}
}

func NewStores(p persistence.Persistence, opts ...StoresOption) *Stores {
	stores := &Stores{persistence: p}

	for _, opt := range opts {
		opt(stores)
	}

	return stores
}

func (s *Stores) LoadWorkflow(ctx context.Context, ref string) (*models.Workflow, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, ref)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, ref)
		}

		return nil, fmt.Errorf("failed to load workflow %s: %w", ref, err)
	}

	if workflow == nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, ref)
	}

	return workflow, nil
}

func (s *Stores) CreateRun(ctx context.Context, workflow *models.Workflow, name string, metadata map[string]any) (runstate.Record, error) {
	run := &models.Run{
		ID:         uuid.NewString(),
		WorkflowID: workflow.ID,
		Name:       name,
		Status:     models.RunStatusCreated,
		Metadata:   maps.Clone(metadata),
	}

	if key, ok := metadata[models.MetadataIdempotencyKey].(string); ok {
		run.IdempotencyKey = key
	}

	err := s.persistence.RunRepository().Create(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

func (s *Stores) LoadRun(ctx context.Context, ref string) (runstate.Record, error) {
	run, err := s.persistence.RunRepository().GetByID(ctx, ref)
	if err != nil {
		if persistence.IsRunNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, ref)
		}

		return nil, fmt.Errorf("failed to load run %s: %w", ref, err)
	}

	return run, nil
}

func (s *Stores) FindRunByIdempotencyKey(ctx context.Context, key string) (runstate.Record, error) {
	run, err := s.persistence.RunRepository().GetByIdempotencyKey(ctx, key)
	if err != nil {
		if persistence.IsRunNotFound(err) {
			return nil, fmt.Errorf("%w: idempotency key %s", ErrSessionNotFound, key)
		}

		return nil, fmt.Errorf("failed to find run for idempotency key %s: %w", key, err)
	}

	return run, nil
}

// CreateMessage stores a message on the run. A user message moves a freshly created run to triggered.
func (s *Stores) CreateMessage(
	ctx context.Context,
	runRef string,
	role models.MessageRole,
	content string,
	metadata map[string]any,
) (*models.Message, error) {
	message := &models.Message{
		ID:       uuid.NewString(),
		RunID:    runRef,
		Role:     role,
		Content:  content,
		Metadata: maps.Clone(metadata),
	}

	err := s.persistence.MessageRepository().Create(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to create message on run %s: %w", runRef, err)
	}

	if role == models.MessageRoleUser {
		err = s.markTriggered(ctx, runRef)
		if err != nil {
			return message, err
		}

		if s.trigger != nil {
			err = s.trigger.ProcessMessage(ctx, message)
			if err != nil {
				return message, fmt.Errorf("failed to trigger run %s: %w", runRef, err)
			}
		}
	}

	return message, nil
}

func (s *Stores) LoadMessagesByRun(ctx context.Context, runRef string, role models.MessageRole) ([]*models.Message, error) {
	messages, err := s.persistence.MessageRepository().GetByRun(ctx, runRef, role)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages of run %s: %w", runRef, err)
	}

	return messages, nil
}

func (s *Stores) markTriggered(ctx context.Context, runRef string) error {
	run, err := s.persistence.RunRepository().GetByID(ctx, runRef)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", runRef, err)
	}

	if run.Status != models.RunStatusCreated {
		return nil
	}

	run.Status = models.RunStatusTriggered

	err = s.persistence.RunRepository().Save(ctx, run)
	if err != nil {
		return fmt.Errorf("failed to mark run %s as triggered: %w", runRef, err)
	}

	return nil
}
