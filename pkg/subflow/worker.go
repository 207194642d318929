package subflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/otelhelper"
	"github.com/dukex/subflow/pkg/runstate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Worker consumes queued fire-and-forget calls. It starts the run and returns; it never
// waits for the run to finish.
type Worker struct {
	workflows Workflows
	runs      Runs
	messages  Messages
	processor Processor
	resolver  runstate.Chain
	logger    *slog.Logger
	tracer    trace.Tracer
}

type WorkerOption func(*Worker)

// WithWorkerResolver replaces the chain that decides whether a redelivered run still
// needs its trigger.
func WithWorkerResolver(chain runstate.Chain) WorkerOption {
	return func(w *Worker) {
		w.resolver = chain
	}
}

func NewWorker(
	workflows Workflows,
	runs Runs,
	messages Messages,
	processor Processor,
	logger *slog.Logger,
	opts ...WorkerOption,
) *Worker {
	worker := &Worker{
		workflows: workflows,
		runs:      runs,
		messages:  messages,
		processor: processor,
		logger:    logger.With("module", "subflow_worker"),
		tracer:    otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(worker)
	}

	if worker.resolver == nil {
		worker.resolver = runstate.DefaultChain(messages)
	}

	return worker
}

// Handle processes one queue item. Malformed items and unknown workflows are dropped
// with a nil error. Any other failure is returned so the queue delivers the item again.
func (w *Worker) Handle(ctx context.Context, item models.QueueItem) (err error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "subflow.worker.handle",
		attribute.String(otelhelper.WorkflowRefKey, item.WorkflowRef),
		attribute.String(otelhelper.JobRefKey, item.JobRef),
		attribute.Int(otelhelper.ExecutionDepthKey, item.ParentContext.ExecutionDepth),
	)
	defer span.End()

	logger := w.logger.With("workflow_ref", item.WorkflowRef, "job_ref", item.JobRef)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling queued sub-workflow: %v", r)
		}

		if err != nil {
			logger.ErrorContext(ctx, "queued sub-workflow failed, it will be redelivered", "error", err)
			otelhelper.SetError(span, err)
		}
	}()

	if item.WorkflowRef == "" {
		logger.WarnContext(ctx, "dropping queue item", "reason", ErrMissingWorkflowRef)

		return nil
	}

	workflow, err := w.workflows.LoadWorkflow(ctx, item.WorkflowRef)
	if err != nil {
		if errors.Is(err, ErrWorkflowNotFound) {
			logger.WarnContext(ctx, "dropping queue item", "reason", err)

			return nil
		}

		return fmt.Errorf("failed to load workflow %s: %w", item.WorkflowRef, err)
	}

	if item.IdempotencyKey != "" {
		record, found, err := w.existingRun(ctx, item.IdempotencyKey)
		if err != nil {
			return err
		}

		if found {
			return w.retrigger(ctx, logger.With("session_ref", record.GetID()), record, workflow, item)
		}
	}

	metadata := runMetadata(item.InputData, item.ParentContext)
	metadata[models.MetadataQueuedExecution] = true

	if item.JobRef != "" {
		metadata[models.MetadataJobRef] = item.JobRef
	}

	if item.IdempotencyKey != "" {
		metadata[models.MetadataIdempotencyKey] = item.IdempotencyKey
	}

	record, err := w.runs.CreateRun(ctx, workflow, RunName(workflow), metadata)
	if err != nil {
		return fmt.Errorf("failed to create session for workflow %s: %w", item.WorkflowRef, err)
	}

	span.SetAttributes(attribute.String(otelhelper.SessionRefKey, record.GetID()))

	message, err := createTriggerMessage(ctx, w.messages, record.GetID(), workflow, item.InputData)
	if err != nil {
		return fmt.Errorf("failed to create trigger message for session %s: %w", record.GetID(), err)
	}

	err = w.processor.ProcessMessage(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to process trigger message for session %s: %w", record.GetID(), err)
	}

	logger.InfoContext(ctx, "queued sub-workflow started", "session_ref", record.GetID())

	return nil
}

func (w *Worker) existingRun(ctx context.Context, key string) (runstate.Record, bool, error) {
	finder, ok := w.runs.(IdempotentRuns)
	if !ok {
		return nil, false, nil
	}

	record, err := finder.FindRunByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to look up idempotency key %s: %w", key, err)
	}

	return record, true, nil
}

// retrigger resumes a run left behind by an earlier delivery of the same item. Runs that
// already progressed are left alone.
func (w *Worker) retrigger(
	ctx context.Context,
	logger *slog.Logger,
	record runstate.Record,
	workflow *models.Workflow,
	item models.QueueItem,
) error {
	status, err := w.resolver.Resolve(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to resolve status of session %s: %w", record.GetID(), err)
	}

	if status != models.ResultStatusPending {
		logger.InfoContext(ctx, "redelivered sub-workflow already started", "status", status)

		return nil
	}

	triggers, err := w.messages.LoadMessagesByRun(ctx, record.GetID(), models.MessageRoleUser)
	if err != nil {
		return fmt.Errorf("failed to load trigger message of session %s: %w", record.GetID(), err)
	}

	var message *models.Message

	if len(triggers) > 0 {
		message = triggers[0]
	} else {
		message, err = createTriggerMessage(ctx, w.messages, record.GetID(), workflow, item.InputData)
		if err != nil {
			return fmt.Errorf("failed to create trigger message for session %s: %w", record.GetID(), err)
		}
	}

	err = w.processor.ProcessMessage(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to process trigger message for session %s: %w", record.GetID(), err)
	}

	logger.InfoContext(ctx, "redelivered sub-workflow re-triggered")

	return nil
}
