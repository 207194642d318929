// Package postgresql provides PostgreSQL persistence for workflows, runs and messages.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/subflow/pkg/persistence"
	"github.com/dukex/subflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	workflowRepo *WorkflowRepository
	runRepo      *RunRepository
	messageRepo  *MessageRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:           database,
		logger:       logger,
		workflowRepo: NewWorkflowRepository(database, logger),
		runRepo:      NewRunRepository(database, logger),
		messageRepo:  NewMessageRepository(database, logger),
	}

	// Run migrations on initialization
	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
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

// marshalMap stores nil maps as an empty JSON object.
func marshalMap(value map[string]any) ([]byte, error) {
	if value == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(value)
}

func unmarshalMap(data []byte) (map[string]any, error) {
	result := make(map[string]any)

	if len(data) == 0 {
		return result, nil
	}

	err := json.Unmarshal(data, &result)
	if err != nil {
		return nil, err
	}

	if result == nil {
		result = make(map[string]any)
	}

	return result, nil
}
