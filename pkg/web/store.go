package web

import (
	"context"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/persistence"
)

// PersistenceStore serves the web Store from a persistence backend.
type PersistenceStore struct {
	persistence persistence.Persistence
}

func NewPersistenceStore(p persistence.Persistence) *PersistenceStore {
	return &PersistenceStore{persistence: p}
}

func (s *PersistenceStore) HealthCheck(ctx context.Context) error {
	return s.persistence.HealthCheck(ctx)
}

func (s *PersistenceStore) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow.DeletedAt != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return workflow, nil
}

func (s *PersistenceStore) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return s.persistence.WorkflowRepository().Save(ctx, workflow)
}
