package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/persistence"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	root string // File system root for storing workflows
	mu   sync.RWMutex
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return filepath.Join(wr.root, "workflows")
}

// GetByID returns a workflow that has not been deleted.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	err := validateID(id)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	wr.mu.RLock()
	defer wr.mu.RUnlock()

	var workflow models.Workflow

	err = readJSON(wr.dir(), id, &workflow)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	if workflow.DeletedAt != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return &workflow, nil
}

// Save creates or replaces a workflow.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	err := validateID(workflow.ID)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	wr.mu.Lock()
	defer wr.mu.Unlock()

	err = writeJSON(wr.dir(), workflow.ID, workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}
