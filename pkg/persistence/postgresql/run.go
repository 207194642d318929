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
	"github.com/lib/pq"
)

const uniqueViolation = pq.ErrorCode("23505")

// RunRepository handles run-related database operations.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

const selectRun = `
	SELECT
		id
	  , workflow_id
	  , name
	  , status
	  , metadata
	  , idempotency_key
	  , created_at
	  , updated_at
	FROM runs
`

func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		return persistence.NewRunError("Create", run.ID, persistence.ErrInvalidID)
	}

	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}

	run.UpdatedAt = now

	metadataJSON, err := marshalMap(run.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal run metadata: %w", err)
	}

	query := `
		INSERT INTO runs (id, workflow_id, name, status, metadata, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.WorkflowID,
		run.Name,
		string(run.Status),
		metadataJSON,
		nullableString(run.IdempotencyKey),
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return persistence.NewRunError("Create", run.ID, persistence.ErrRunAlreadyExists)
		}

		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	row := r.db.QueryRowContext(ctx, selectRun+" WHERE id = $1", id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRunError("GetByID", id, persistence.ErrRunNotFound)
		}

		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return run, nil
}

// Save updates the mutable fields of an existing run.
func (r *RunRepository) Save(ctx context.Context, run *models.Run) error {
	run.UpdatedAt = time.Now().UTC()

	metadataJSON, err := marshalMap(run.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal run metadata: %w", err)
	}

	query := `
		UPDATE runs
		SET name = $2, status = $3, metadata = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, run.ID, run.Name, string(run.Status), metadataJSON, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewRunError("Save", run.ID, persistence.ErrRunNotFound)
	}

	return nil
}

func (r *RunRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Run, error) {
	if key == "" {
		return nil, persistence.NewRunError("GetByIdempotencyKey", key, persistence.ErrRunNotFound)
	}

	row := r.db.QueryRowContext(ctx, selectRun+" WHERE idempotency_key = $1", key)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRunError("GetByIdempotencyKey", key, persistence.ErrRunNotFound)
		}

		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return run, nil
}

func scanRun(row *sql.Row) (*models.Run, error) {
	var (
		run            models.Run
		status         string
		metadataJSON   []byte
		idempotencyKey sql.NullString
	)

	err := row.Scan(
		&run.ID,
		&run.WorkflowID,
		&run.Name,
		&status,
		&metadataJSON,
		&idempotencyKey,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = models.RunStatus(status)
	run.IdempotencyKey = idempotencyKey.String

	run.Metadata, err = unmarshalMap(metadataJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal run metadata: %w", err)
	}

	return &run, nil
}

func nullableString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
