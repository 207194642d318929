// Package memory provides an in-process persistence used for development and tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/persistence"
)

// Persistence keeps everything in concurrent maps. Nothing survives a restart.
type Persistence struct {
	workflowRepo *WorkflowRepository
	runRepo      *RunRepository
	messageRepo  *MessageRepository
}

func NewPersistence() *Persistence {
	return &Persistence{
		workflowRepo: &WorkflowRepository{workflows: haxmap.New[string, models.Workflow]()},
		runRepo:      &RunRepository{runs: haxmap.New[string, models.Run]()},
		messageRepo:  &MessageRepository{messages: haxmap.New[string, []models.Message]()},
	}
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) RunRepository() persistence.RunRepository {
	return p.runRepo
}

func (p *Persistence) MessageRepository() persistence.MessageRepository {
	return p.messageRepo
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

type WorkflowRepository struct {
	workflows *haxmap.Map[string, models.Workflow]
}

func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	workflow, ok := wr.workflows.Get(id)
	if !ok || workflow.DeletedAt != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	workflow.InputSchema = maps.Clone(workflow.InputSchema)
	workflow.Metadata = maps.Clone(workflow.Metadata)

	return &workflow, nil
}

func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	wr.workflows.Set(workflow.ID, *workflow)

	return nil
}

type RunRepository struct {
	runs *haxmap.Map[string, models.Run]
	mu   sync.Mutex // serializes existence checks with writes
}

func (rr *RunRepository) Create(_ context.Context, run *models.Run) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if _, exists := rr.runs.Get(run.ID); exists {
		return persistence.NewRunError("Create", run.ID, persistence.ErrRunAlreadyExists)
	}

	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}

	run.UpdatedAt = now

	rr.runs.Set(run.ID, cloneRun(*run))

	return nil
}

func (rr *RunRepository) GetByID(_ context.Context, id string) (*models.Run, error) {
	run, ok := rr.runs.Get(id)
	if !ok {
		return nil, persistence.NewRunError("GetByID", id, persistence.ErrRunNotFound)
	}

	run = cloneRun(run)

	return &run, nil
}

func (rr *RunRepository) Save(_ context.Context, run *models.Run) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if _, exists := rr.runs.Get(run.ID); !exists {
		return persistence.NewRunError("Save", run.ID, persistence.ErrRunNotFound)
	}

	run.UpdatedAt = time.Now().UTC()
	rr.runs.Set(run.ID, cloneRun(*run))

	return nil
}

func (rr *RunRepository) GetByIdempotencyKey(_ context.Context, key string) (*models.Run, error) {
	var found *models.Run

	if key != "" {
		rr.runs.ForEach(func(_ string, run models.Run) bool {
			if run.IdempotencyKey == key {
				clone := cloneRun(run)
				found = &clone

				return false
			}

			return true
		})
	}

	if found == nil {
		return nil, persistence.NewRunError("GetByIdempotencyKey", key, persistence.ErrRunNotFound)
	}

	return found, nil
}

type MessageRepository struct {
	messages *haxmap.Map[string, []models.Message]
	mu       sync.Mutex // appends are read-modify-write
}

func (mr *MessageRepository) Create(_ context.Context, message *models.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	mr.mu.Lock()
	defer mr.mu.Unlock()

	existing, _ := mr.messages.Get(message.RunID)
	stored := *message
	stored.Metadata = maps.Clone(message.Metadata)
	mr.messages.Set(message.RunID, append(slices.Clone(existing), stored))

	return nil
}

func (mr *MessageRepository) GetByRun(_ context.Context, runID string, role models.MessageRole) ([]*models.Message, error) {
	existing, _ := mr.messages.Get(runID)

	result := make([]*models.Message, 0, len(existing))

	for _, message := range existing {
		if role != "" && message.Role != role {
			continue
		}

		message.Metadata = maps.Clone(message.Metadata)
		result = append(result, &message)
	}

	return result, nil
}

func cloneRun(run models.Run) models.Run {
	run.Metadata = maps.Clone(run.Metadata)

	return run
}
