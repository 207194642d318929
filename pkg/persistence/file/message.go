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

// MessageRepository keeps the messages of each run in one file, in creation order.
type MessageRepository struct {
	root string
	mu   sync.RWMutex
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(root string) *MessageRepository {
	return &MessageRepository{root: root}
}

func (mr *MessageRepository) dir() string {
	return filepath.Join(mr.root, "messages")
}

// Create appends a message to its run.
func (mr *MessageRepository) Create(_ context.Context, message *models.Message) error {
	err := validateID(message.RunID)
	if err != nil {
		return persistence.NewRunError("CreateMessage", message.RunID, err)
	}

	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	mr.mu.Lock()
	defer mr.mu.Unlock()

	messages, err := mr.read(message.RunID)
	if err != nil {
		return persistence.NewRunError("CreateMessage", message.RunID, err)
	}

	messages = append(messages, message)

	err = writeJSON(mr.dir(), message.RunID, messages)
	if err != nil {
		return persistence.NewRunError("CreateMessage", message.RunID, err)
	}

	return nil
}

// GetByRun returns the messages of a run with the given role, oldest first.
func (mr *MessageRepository) GetByRun(_ context.Context, runID string, role models.MessageRole) ([]*models.Message, error) {
	err := validateID(runID)
	if err != nil {
		return nil, persistence.NewRunError("GetMessages", runID, err)
	}

	mr.mu.RLock()
	defer mr.mu.RUnlock()

	messages, err := mr.read(runID)
	if err != nil {
		return nil, persistence.NewRunError("GetMessages", runID, err)
	}

	filtered := make([]*models.Message, 0, len(messages))

	for _, message := range messages {
		if role == "" || message.Role == role {
			filtered = append(filtered, message)
		}
	}

	return filtered, nil
}

func (mr *MessageRepository) read(runID string) ([]*models.Message, error) {
	var messages []*models.Message

	err := readJSON(mr.dir(), runID, &messages)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return messages, nil
}
