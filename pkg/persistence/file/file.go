// Package file provides file-based persistence for workflows, runs and messages.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/subflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root         string
	workflowRepo *WorkflowRepository
	runRepo      *RunRepository
	messageRepo  *MessageRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		workflowRepo: NewWorkflowRepository(cleanRoot),
		runRepo:      NewRunRepository(cleanRoot),
		messageRepo:  NewMessageRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) RunRepository() persistence.RunRepository {
	return fp.runRepo
}

func (fp *Persistence) MessageRepository() persistence.MessageRepository {
	return fp.messageRepo
}

// validateID validates that an identifier is safe to use as a file name.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: identifier cannot be empty", persistence.ErrInvalidID)
	}

	if strings.Contains(id, "..") || strings.Contains(id, "/") || strings.Contains(id, "\\") {
		return fmt.Errorf("%w: identifier contains invalid characters", persistence.ErrInvalidID)
	}

	return nil
}

func writeJSON(dir, id string, value any) error {
	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	// Write to a temp file first so readers never see a partial document.
	tmp := filepath.Join(dir, "."+id+".tmp")

	err = os.WriteFile(tmp, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", id, err)
	}

	return os.Rename(tmp, filepath.Join(dir, id+".json"))
}

// readJSON returns os.ErrNotExist when the document is missing.
func readJSON(dir, id string, value any) error {
	data, err := os.ReadFile(filepath.Join(dir, id+".json")) // #nosec G304 -- id is validated by callers
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.ErrNotExist
		}

		return fmt.Errorf("failed to read %s: %w", id, err)
	}

	err = json.Unmarshal(data, value)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}

	return nil
}
