package subflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/subflow/pkg/models"
	"github.com/google/uuid"
)

// submit enqueues a fire-and-forget call. The job reference only correlates logs;
// no run exists yet, so there is nothing to poll.
func (c *Coordinator) submit(
	ctx context.Context,
	logger *slog.Logger,
	req models.ExecutionRequest,
	child models.ParentContext,
	start time.Time,
) models.ExecutionResult {
	if c.queue == nil {
		return c.failed(ctx, logger, "", ErrNoQueue, start)
	}

	jobRef := "job-" + uuid.NewString()
	logger = logger.With("job_ref", jobRef)

	item := models.QueueItem{
		WorkflowRef:    req.WorkflowRef,
		InputData:      models.CloneInputData(req.InputData),
		ParentContext:  child,
		JobRef:         jobRef,
		IdempotencyKey: req.IdempotencyKey,
	}

	err := c.queue.Enqueue(ctx, item)
	if err != nil {
		return c.failed(ctx, logger, "", fmt.Errorf("failed to enqueue sub-workflow %s: %w", req.WorkflowRef, err), start)
	}

	logger.InfoContext(ctx, "sub-workflow queued", "execution_depth", child.ExecutionDepth)

	return models.PendingResult("", jobRef, c.elapsed(start))
}
