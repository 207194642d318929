package subflow

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/persistence"
	"github.com/dukex/subflow/pkg/runstate"
	"github.com/google/uuid"
)

// Reporter records what the engine did with a run: started, completed with a reply, or failed.
// Finished runs never change again.
type Reporter struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewReporter(p persistence.Persistence, logger *slog.Logger) *Reporter {
	return &Reporter{
		persistence: p,
		logger:      logger.With("module", "subflow_reporter"),
	}
}

// Start marks the run as running.
func (r *Reporter) Start(ctx context.Context, runRef string) error {
	run, err := r.openRun(ctx, runRef)
	if err != nil {
		return err
	}

	run.Status = models.RunStatusRunning

	return r.save(ctx, run)
}

// Complete stores an assistant reply carrying content and outputs, then marks the run completed.
func (r *Reporter) Complete(ctx context.Context, runRef, content string, outputs map[string]any) error {
	run, err := r.openRun(ctx, runRef)
	if err != nil {
		return err
	}

	reply := &models.Message{
		ID:      uuid.NewString(),
		RunID:   runRef,
		Role:    models.MessageRoleAssistant,
		Content: content,
	}

	if outputs != nil {
		reply.Metadata = map[string]any{models.MetadataOutputs: maps.Clone(outputs)}
	}

	err = r.persistence.MessageRepository().Create(ctx, reply)
	if err != nil {
		return fmt.Errorf("failed to store reply for run %s: %w", runRef, err)
	}

	run.Status = models.RunStatusCompleted

	err = r.save(ctx, run)
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "run completed", "session_ref", runRef)

	return nil
}

// Fail marks the run failed and keeps message as its error.
func (r *Reporter) Fail(ctx context.Context, runRef, message string) error {
	run, err := r.openRun(ctx, runRef)
	if err != nil {
		return err
	}

	if run.Metadata == nil {
		run.Metadata = map[string]any{}
	}

	run.Status = models.RunStatusFailed
	run.Metadata[models.MetadataErrorMessage] = message

	err = r.save(ctx, run)
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "run failed", "session_ref", runRef, "error_message", message)

	return nil
}

func (r *Reporter) openRun(ctx context.Context, runRef string) (*models.Run, error) {
	run, err := r.persistence.RunRepository().GetByID(ctx, runRef)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runRef, err)
	}

	if status, ok := runstate.MapRunStatus(string(run.Status)); ok && status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrRunFinished, runRef, run.Status)
	}

	return run, nil
}

func (r *Reporter) save(ctx context.Context, run *models.Run) error {
	err := r.persistence.RunRepository().Save(ctx, run)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}

	return nil
}
