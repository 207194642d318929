package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/subflow/pkg/events"
	"github.com/dukex/subflow/pkg/subflow"
)

// RunReporter applies engine reports to run records.
type RunReporter interface {
	Start(ctx context.Context, runRef string) error
	Complete(ctx context.Context, runRef, content string, outputs map[string]any) error
	Fail(ctx context.Context, runRef, message string) error
}

// RegisterRunReporting routes run.started, run.completed and run.failed events to reporter.
// Reports about runs that already finished are duplicates and are acknowledged.
func RegisterRunReporting(bus EventSubscriber, reporter RunReporter, logger *slog.Logger) error {
	logger = logger.With("module", "run_reporting")

	handlers := map[events.EventType]EventHandler{
		events.RunStartedEvent: func(ctx context.Context, event any) error {
			started, ok := event.(*events.RunStarted)
			if !ok {
				return fmt.Errorf("unexpected event %T", event)
			}

			return ignoreFinished(ctx, logger, started.RunID, reporter.Start(ctx, started.RunID))
		},
		events.RunCompletedEvent: func(ctx context.Context, event any) error {
			completed, ok := event.(*events.RunCompleted)
			if !ok {
				return fmt.Errorf("unexpected event %T", event)
			}

			err := reporter.Complete(ctx, completed.RunID, completed.Content, completed.Outputs)

			return ignoreFinished(ctx, logger, completed.RunID, err)
		},
		events.RunFailedEvent: func(ctx context.Context, event any) error {
			failed, ok := event.(*events.RunFailed)
			if !ok {
				return fmt.Errorf("unexpected event %T", event)
			}

			return ignoreFinished(ctx, logger, failed.RunID, reporter.Fail(ctx, failed.RunID, failed.Error))
		},
	}

	for eventType, handler := range handlers {
		err := bus.Handle(eventType, handler)
		if err != nil {
			return fmt.Errorf("failed to register handler for %s: %w", eventType, err)
		}
	}

	return nil
}

func ignoreFinished(ctx context.Context, logger *slog.Logger, runRef string, err error) error {
	if errors.Is(err, subflow.ErrRunFinished) {
		logger.WarnContext(ctx, "ignoring report for finished run", "session_ref", runRef, "error", err)

		return nil
	}

	return err
}
