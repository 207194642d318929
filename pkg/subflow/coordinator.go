// Package subflow launches child workflows from a parent workflow and reports their outcome.
//
// A call runs in one of three modes. job creates a run and waits for it, job_async creates
// a run and returns its session reference, and job_fire_forget enqueues the request for a
// Worker. Every call passes the recursion guard first, and every operation returns a
// models.ExecutionResult instead of an error.
package subflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/otelhelper"
	"github.com/dukex/subflow/pkg/recursion"
	"github.com/dukex/subflow/pkg/runstate"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dukex/subflow/pkg/subflow"

// Coordinator is safe for concurrent use. It holds no per-request state.
type Coordinator struct {
	workflows Workflows
	runs      Runs
	messages  Messages
	queue     Queue

	resolver runstate.Chain
	config   Config
	clock    clockwork.Clock
	logger   *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Coordinator)

func WithConfig(config Config) Option {
	return func(c *Coordinator) {
		c.config = config
	}
}

// WithClock replaces the wall clock used by the completion poller.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// WithResolver replaces the status resolver chain.
func WithResolver(chain runstate.Chain) Option {
	return func(c *Coordinator) {
		c.resolver = chain
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = tracer
	}
}

// NewCoordinator builds a coordinator. queue may be nil when fire-and-forget calls are not needed.
func NewCoordinator(workflows Workflows, runs Runs, messages Messages, queue Queue, opts ...Option) *Coordinator {
	coordinator := &Coordinator{
		workflows: workflows,
		runs:      runs,
		messages:  messages,
		queue:     queue,
		config:    DefaultConfig(),
		clock:     clockwork.NewRealClock(),
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(coordinator)
	}

	if coordinator.resolver == nil {
		coordinator.resolver = runstate.DefaultChain(messages)
	}

	coordinator.logger = coordinator.logger.With("module", "subflow")

	return coordinator
}

// Execute launches the workflow named by req in the requested mode.
func (c *Coordinator) Execute(ctx context.Context, req models.ExecutionRequest) (result models.ExecutionResult) {
	start := c.clock.Now()

	mode := req.Mode
	if mode == "" {
		mode = models.ModeJob
	}

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "subflow.execute",
		attribute.String(otelhelper.WorkflowRefKey, req.WorkflowRef),
		attribute.String(otelhelper.ExecutionModeKey, string(mode)),
		attribute.Int(otelhelper.ExecutionDepthKey, req.ParentContext.Depth()+1),
	)
	defer span.End()
	defer func() { annotate(span, result) }()
	defer c.recoverResult(ctx, "execute", start, &result)

	logger := c.logger.With("workflow_ref", req.WorkflowRef, "mode", mode)

	if req.WorkflowRef == "" {
		return c.failed(ctx, logger, "", ErrMissingWorkflowRef, start)
	}

	if !mode.IsValid() {
		return c.failed(ctx, logger, "", fmt.Errorf("%w: %s", ErrUnsupportedMode, mode), start)
	}

	child, err := recursion.Check(req.ParentContext, req.WorkflowRef, c.config.MaxDepth)
	if err != nil {
		return c.failed(ctx, logger, "", err, start)
	}

	workflow, err := c.workflows.LoadWorkflow(ctx, req.WorkflowRef)
	if err != nil {
		return c.failed(ctx, logger, "", err, start)
	}

	err = ValidateInput(workflow, req.InputData)
	if err != nil {
		return c.failed(ctx, logger, "", err, start)
	}

	if mode == models.ModeJobFireForget {
		return c.submit(ctx, logger, req, child, start)
	}

	return c.executeNow(ctx, logger, workflow, req, mode, child, start)
}

// GetResults reads the outcome of an existing run. Without wait it checks the run once;
// with wait it polls until the run is terminal or timeout seconds have passed.
func (c *Coordinator) GetResults(
	ctx context.Context,
	sessionRef string,
	wait bool,
	timeout int,
	pollInterval int,
) (result models.ExecutionResult) {
	start := c.clock.Now()

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "subflow.get_results",
		attribute.String(otelhelper.SessionRefKey, sessionRef),
		attribute.Bool("subflow.wait", wait),
	)
	defer span.End()
	defer func() { annotate(span, result) }()
	defer c.recoverResult(ctx, "get results", start, &result)

	logger := c.logger.With("session_ref", sessionRef)

	if sessionRef == "" {
		return c.failed(ctx, logger, "", fmt.Errorf("%w: empty session reference", ErrSessionNotFound), start)
	}

	return c.poll(ctx, logger, sessionRef, wait, c.config.timeout(timeout), c.config.pollInterval(pollInterval), start)
}

// IsComplete reports whether the run reached completed or failed.
func (c *Coordinator) IsComplete(ctx context.Context, sessionRef string) bool {
	return c.GetStatus(ctx, sessionRef).IsTerminal()
}

// GetStatus returns the current status of a run. A run that cannot be found or
// loaded reports failed.
func (c *Coordinator) GetStatus(ctx context.Context, sessionRef string) (status models.ResultStatus) {
	logger := c.logger.With("session_ref", sessionRef)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "recovered from panic while reading status", "panic", r)

			status = models.ResultStatusFailed
		}
	}()

	record, err := c.runs.LoadRun(ctx, sessionRef)
	if err != nil {
		logger.WarnContext(ctx, "failed to load session", "error", err)

		return models.ResultStatusFailed
	}

	status, err = c.resolver.Resolve(ctx, record)
	if err != nil {
		logger.WarnContext(ctx, "failed to resolve session status", "error", err)

		return models.ResultStatusFailed
	}

	return status
}

func (c *Coordinator) elapsed(start time.Time) int64 {
	return c.clock.Since(start).Milliseconds()
}

func (c *Coordinator) failed(
	ctx context.Context,
	logger *slog.Logger,
	sessionRef string,
	err error,
	start time.Time,
) models.ExecutionResult {
	if errors.Is(err, recursion.ErrMaxDepthExceeded) ||
		errors.Is(err, recursion.ErrCircularReference) ||
		errors.Is(err, recursion.ErrInvalidDepth) {
		logger.WarnContext(ctx, "sub-workflow call rejected", "error", err)
	} else {
		logger.ErrorContext(ctx, "sub-workflow call failed", "error", err)
	}

	return models.FailedResult(sessionRef, err.Error(), c.elapsed(start))
}

func (c *Coordinator) recoverResult(ctx context.Context, op string, start time.Time, result *models.ExecutionResult) {
	r := recover()
	if r == nil {
		return
	}

	c.logger.ErrorContext(ctx, "recovered from panic", "operation", op, "panic", r)

	*result = models.FailedResult(result.SessionRef, fmt.Sprintf("%s: %v", op, r), c.elapsed(start))
}

func annotate(span trace.Span, result models.ExecutionResult) {
	otelhelper.SetResult(span, result)
}
