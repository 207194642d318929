package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/subflow/pkg/models"
)

// MessageRepository handles the messages attached to runs.
type MessageRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(db *sql.DB, logger *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, logger: logger}
}

func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	metadataJSON, err := marshalMap(message.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal message metadata: %w", err)
	}

	query := `
		INSERT INTO run_messages (id, run_id, role, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		message.ID,
		message.RunID,
		string(message.Role),
		message.Content,
		metadataJSON,
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// GetByRun returns messages in insertion order. An empty role returns every message.
func (r *MessageRepository) GetByRun(ctx context.Context, runID string, role models.MessageRole) ([]*models.Message, error) {
	query := `
		SELECT
			id
		  , run_id
		  , role
		  , content
		  , metadata
		  , created_at
		FROM run_messages
		WHERE run_id = $1 AND ($2 = '' OR role = $2)
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, runID, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	defer func(ctx context.Context, r *MessageRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	messages := make([]*models.Message, 0)

	for rows.Next() {
		var (
			message      models.Message
			messageRole  string
			metadataJSON []byte
		)

		err := rows.Scan(
			&message.ID,
			&message.RunID,
			&messageRole,
			&message.Content,
			&metadataJSON,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		message.Role = models.MessageRole(messageRole)

		message.Metadata, err = unmarshalMap(metadataJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal message metadata: %w", err)
		}

		messages = append(messages, &message)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}
