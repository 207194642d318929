package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/persistence"
)

// RunRepository handles run record file operations.
type RunRepository struct {
	root string // File system root for storing runs
	mu   sync.RWMutex
}

// NewRunRepository creates a new run repository.
func NewRunRepository(root string) *RunRepository {
	return &RunRepository{root: root}
}

func (rr *RunRepository) dir() string {
	return filepath.Join(rr.root, "runs")
}

// Create stores a new run and fails if the ID is taken.
func (rr *RunRepository) Create(_ context.Context, run *models.Run) error {
	err := validateID(run.ID)
	if err != nil {
		return persistence.NewRunError("Create", run.ID, err)
	}

	rr.mu.Lock()
	defer rr.mu.Unlock()

	_, err = os.Stat(filepath.Join(rr.dir(), run.ID+".json"))
	if err == nil {
		return persistence.NewRunError("Create", run.ID, persistence.ErrRunAlreadyExists)
	}

	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}

	run.UpdatedAt = now

	err = writeJSON(rr.dir(), run.ID, withRunDefaults(run))
	if err != nil {
		return persistence.NewRunError("Create", run.ID, err)
	}

	return nil
}

// GetByID retrieves a run by its ID.
func (rr *RunRepository) GetByID(_ context.Context, id string) (*models.Run, error) {
	err := validateID(id)
	if err != nil {
		return nil, persistence.NewRunError("GetByID", id, err)
	}

	rr.mu.RLock()
	defer rr.mu.RUnlock()

	return rr.read(id)
}

func (rr *RunRepository) read(id string) (*models.Run, error) {
	var run models.Run

	err := readJSON(rr.dir(), id, &run)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewRunError("GetByID", id, persistence.ErrRunNotFound)
		}

		return nil, persistence.NewRunError("GetByID", id, err)
	}

	return &run, nil
}

// Save updates an existing run.
func (rr *RunRepository) Save(_ context.Context, run *models.Run) error {
	err := validateID(run.ID)
	if err != nil {
		return persistence.NewRunError("Save", run.ID, err)
	}

	rr.mu.Lock()
	defer rr.mu.Unlock()

	_, err = os.Stat(filepath.Join(rr.dir(), run.ID+".json"))
	if err != nil {
		return persistence.NewRunError("Save", run.ID, persistence.ErrRunNotFound)
	}

	run.UpdatedAt = time.Now().UTC()

	err = writeJSON(rr.dir(), run.ID, withRunDefaults(run))
	if err != nil {
		return persistence.NewRunError("Save", run.ID, err)
	}

	return nil
}

// GetByIdempotencyKey scans the stored runs for the given key.
func (rr *RunRepository) GetByIdempotencyKey(_ context.Context, key string) (*models.Run, error) {
	if key == "" {
		return nil, persistence.NewRunError("GetByIdempotencyKey", "", persistence.ErrRunNotFound)
	}

	rr.mu.RLock()
	defer rr.mu.RUnlock()

	entries, err := os.ReadDir(rr.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewRunError("GetByIdempotencyKey", key, persistence.ErrRunNotFound)
		}

		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		run, err := rr.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			// Skip invalid files
			continue
		}

		if run.IdempotencyKey == key {
			return run, nil
		}
	}

	return nil, persistence.NewRunError("GetByIdempotencyKey", key, persistence.ErrRunNotFound)
}

func withRunDefaults(run *models.Run) models.Run {
	toSave := *run
	if toSave.Metadata == nil {
		toSave.Metadata = make(map[string]any)
	}

	return toSave
}
