package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/persistence"
	"github.com/google/uuid"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `
		SELECT
			id
		  , name
		  , description
		  , status
		  , input_schema
		  , metadata
		  , owner
		  , created_at
		  , updated_at
		  , deleted_at
		FROM workflows
		WHERE id = $1 AND deleted_at IS NULL
	`

	row := r.db.QueryRowContext(ctx, query, id)

	workflow, err := r.scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

// Save inserts or updates a workflow.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	var inputSchemaJSON []byte

	if workflow.InputSchema != nil {
		encoded, err := marshalMap(workflow.InputSchema)
		if err != nil {
			return fmt.Errorf("failed to marshal input schema: %w", err)
		}

		inputSchemaJSON = encoded
	}

	metadataJSON, err := marshalMap(workflow.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO workflows (id, name, description, status, input_schema, metadata, owner, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			input_schema = EXCLUDED.input_schema,
			metadata = EXCLUDED.metadata,
			owner = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		string(workflow.Status),
		inputSchemaJSON,
		metadataJSON,
		workflow.Owner,
		workflow.CreatedAt,
		workflow.UpdatedAt,
		workflow.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) scanWorkflow(row *sql.Row) (*models.Workflow, error) {
	var (
		workflow        models.Workflow
		status          string
		inputSchemaJSON []byte
		metadataJSON    []byte
		owner           sql.NullString
		deletedAt       sql.NullTime
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&status,
		&inputSchemaJSON,
		&metadataJSON,
		&owner,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.Status = models.WorkflowStatus(status)
	workflow.Owner = owner.String

	if deletedAt.Valid {
		workflow.DeletedAt = &deletedAt.Time
	}

	if len(inputSchemaJSON) > 0 {
		workflow.InputSchema, err = unmarshalMap(inputSchemaJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal input schema: %w", err)
		}
	}

	workflow.Metadata, err = unmarshalMap(metadataJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &workflow, nil
}
