package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/subflow/pkg/eventbus"
	"github.com/dukex/subflow/pkg/persistence"
	"github.com/dukex/subflow/pkg/queue"
	"github.com/dukex/subflow/pkg/subflow"
)

// WorkerManager runs queued sub-workflow calls and applies the run reports of the engine.
type WorkerManager struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	queue       queue.Queue
	eventBus    eventbus.EventBus
}

func NewWorkerManager(
	id string,
	persistence persistence.Persistence,
	queue queue.Queue,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *WorkerManager {
	return &WorkerManager{
		id:          id,
		logger:      logger.With("module", "subflow-worker", "worker_id", id),
		persistence: persistence,
		queue:       queue,
		eventBus:    eventBus,
	}
}

// Start consumes the execution queue until ctx is cancelled, then waits for the
// consumer to return.
func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	stores := subflow.NewStores(w.persistence)
	processor := eventbus.NewRunProcessor(w.eventBus, w.logger)
	worker := subflow.NewWorker(stores, stores, stores, processor, w.logger)
	reporter := subflow.NewReporter(w.persistence, w.logger)

	err := eventbus.RegisterRunReporting(w.eventBus, reporter, w.logger)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	consumed := make(chan error, 1)

	go func() {
		consumed <- w.queue.Consume(ctx, worker.Handle)
	}()

	w.logger.InfoContext(ctx, "Worker started successfully")

	select {
	case <-ctx.Done():
		w.logger.InfoContext(ctx, "Shutting down worker...")

		// The item in flight finishes before Start returns.
		err := <-consumed
		if err != nil {
			w.logger.ErrorContext(ctx, "Execution queue consumer stopped with error", "error", err)
		}

		return nil
	case err := <-consumed:
		if err != nil {
			return fmt.Errorf("execution queue consumer stopped: %w", err)
		}

		return nil
	}
}
