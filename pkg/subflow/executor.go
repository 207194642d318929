package subflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/subflow/pkg/models"
)

// RunName is the name given to the run record of a sub-workflow call.
func RunName(workflow *models.Workflow) string {
	return "Sub-workflow: " + workflow.Label()
}

func runMetadata(input *models.InputData, child models.ParentContext) map[string]any {
	return map[string]any{
		models.MetadataInputData:     models.CloneInputData(input),
		models.MetadataParentContext: child.ToMap(),
	}
}

func createTriggerMessage(
	ctx context.Context,
	messages Messages,
	sessionRef string,
	workflow *models.Workflow,
	input *models.InputData,
) (*models.Message, error) {
	return messages.CreateMessage(ctx, sessionRef, models.MessageRoleUser,
		"Execute workflow "+workflow.Label(),
		map[string]any{models.MetadataInputData: models.CloneInputData(input)},
	)
}

// executeNow creates the run and its trigger message, then returns pending (job_async)
// or waits for the run (job).
func (c *Coordinator) executeNow(
	ctx context.Context,
	logger *slog.Logger,
	workflow *models.Workflow,
	req models.ExecutionRequest,
	mode models.ExecutionMode,
	child models.ParentContext,
	start time.Time,
) models.ExecutionResult {
	record, err := c.runs.CreateRun(ctx, workflow, RunName(workflow), runMetadata(req.InputData, child))
	if err != nil {
		return c.failed(ctx, logger, "", fmt.Errorf("failed to create session for workflow %s: %w", req.WorkflowRef, err), start)
	}

	sessionRef := record.GetID()
	logger = logger.With("session_ref", sessionRef)

	// A run without its trigger message may never progress. The caller still gets the session.
	_, err = createTriggerMessage(ctx, c.messages, sessionRef, workflow, req.InputData)
	if err != nil {
		logger.ErrorContext(ctx, "failed to create trigger message", "error", err)
	}

	logger.InfoContext(ctx, "sub-workflow started", "execution_depth", child.ExecutionDepth)

	if mode == models.ModeJobAsync {
		return models.PendingResult(sessionRef, "", c.elapsed(start))
	}

	return c.poll(ctx, logger, sessionRef, true, c.config.timeout(req.Timeout), c.config.pollInterval(req.PollInterval), start)
}
