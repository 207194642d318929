package subflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/runstate"
)

// poll checks the run until it is terminal. Without wait the loop body runs once and a
// non-terminal run reports running. The timeout is measured from start, so time spent
// creating the run counts against it.
func (c *Coordinator) poll(
	ctx context.Context,
	logger *slog.Logger,
	sessionRef string,
	wait bool,
	timeoutSeconds int,
	pollIntervalMs int,
	start time.Time,
) models.ExecutionResult {
	timeout := time.Duration(timeoutSeconds) * time.Second
	interval := time.Duration(pollIntervalMs) * time.Millisecond

	for attempt := 1; ; attempt++ {
		record, err := c.runs.LoadRun(ctx, sessionRef)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				logger.WarnContext(ctx, "session not found")

				return models.FailedResult(sessionRef, "session not found: "+sessionRef, c.elapsed(start))
			}

			return c.failed(ctx, logger, sessionRef, err, start)
		}

		status, err := c.resolver.Resolve(ctx, record)
		if err != nil {
			return c.failed(ctx, logger, sessionRef, err, start)
		}

		switch status {
		case models.ResultStatusCompleted:
			outputs, err := runstate.ExtractOutputs(ctx, c.messages, record)
			if err != nil {
				return c.failed(ctx, logger, sessionRef, err, start)
			}

			return models.CompletedResult(sessionRef, outputs, c.elapsed(start))
		case models.ResultStatusFailed:
			return models.FailedResult(sessionRef, runstate.ErrorMessage(record), c.elapsed(start))
		}

		if !wait {
			return models.RunningResult(sessionRef, c.elapsed(start))
		}

		logger.DebugContext(ctx, "waiting for sub-workflow", "status", status, "attempt", attempt)

		timer := c.clock.NewTimer(interval)

		select {
		case <-ctx.Done():
			timer.Stop()

			return models.FailedResult(sessionRef,
				fmt.Sprintf("stopped waiting for session %s: %v", sessionRef, ctx.Err()),
				c.elapsed(start),
			)
		case <-timer.Chan():
		}

		elapsed := c.clock.Since(start)
		if elapsed >= timeout {
			logger.WarnContext(ctx, "sub-workflow timed out", "timeout_seconds", timeoutSeconds, "attempts", attempt)

			return models.TimeoutResult(sessionRef,
				fmt.Sprintf("sub-workflow did not finish within %d seconds", timeoutSeconds),
				elapsed.Milliseconds(),
			)
		}
	}
}
