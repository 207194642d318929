package subflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/runstate"
	"github.com/dukex/subflow/pkg/subflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func newWorker(f *fixture, processor *recordingProcessor) *subflow.Worker {
	return subflow.NewWorker(f.stores, f.stores, f.stores, processor, discardLogger())
}

func queuedItem() models.QueueItem {
	return models.QueueItem{
		WorkflowRef: "wf-child",
		InputData:   models.NewInputData(orderedmap.Pair[string, any]{Key: "topic", Value: "go"}),
		ParentContext: models.ParentContext{
			ExecutionDepth: 2,
			WorkflowChain:  []string{"wf-parent", "wf-child"},
			SessionRef:     "run-parent",
		},
		JobRef: "job-1",
	}
}

func TestWorker_StartsQueuedRun(t *testing.T) {
	f := newFixture(t)
	processor := &recordingProcessor{}
	ctx := context.Background()

	err := newWorker(f, processor).Handle(ctx, queuedItem())
	require.NoError(t, err)

	processed := processor.Processed()
	require.Len(t, processed, 1)
	assert.Equal(t, models.MessageRoleUser, processed[0].Role)
	assert.Equal(t, "Execute workflow Child", processed[0].Content)

	run := f.run(t, processed[0].RunID)
	assert.Equal(t, "wf-child", run.WorkflowID)
	assert.Equal(t, "Sub-workflow: Child", run.Name)
	assert.Equal(t, true, run.Metadata[models.MetadataQueuedExecution])
	assert.Equal(t, "job-1", run.Metadata[models.MetadataJobRef])

	parent, ok := models.ParentContextFromMetadata(run.Metadata)
	require.True(t, ok)
	assert.Equal(t, 2, parent.ExecutionDepth)
	assert.Equal(t, []string{"wf-parent", "wf-child"}, parent.WorkflowChain)
	assert.Equal(t, "run-parent", parent.SessionRef)

	runs, messages, loads := f.stores.counts()
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, messages)
	assert.Zero(t, loads)
}

func TestWorker_DropsUnusableItems(t *testing.T) {
	tests := []struct {
		name string
		item models.QueueItem
	}{
		{name: "missing workflow reference", item: models.QueueItem{}},
		{name: "unknown workflow", item: models.QueueItem{WorkflowRef: "wf-missing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			processor := &recordingProcessor{}

			err := newWorker(f, processor).Handle(context.Background(), tt.item)
			require.NoError(t, err)

			runs, messages, _ := f.stores.counts()
			assert.Zero(t, runs)
			assert.Zero(t, messages)
			assert.Empty(t, processor.Processed())
		})
	}
}

func TestWorker_ReturnsErrorsForRedelivery(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *fixture, processor *recordingProcessor)
		wantRuns  int
		processed int
	}{
		{
			name:  "workflow store unavailable",
			setup: func(f *fixture, _ *recordingProcessor) { f.stores.loadWorkflowErr = errBoom },
		},
		{
			name:  "run creation fails",
			setup: func(f *fixture, _ *recordingProcessor) { f.stores.createRunErr = errBoom },
		},
		{
			name:     "trigger message fails",
			setup:    func(f *fixture, _ *recordingProcessor) { f.stores.createMessageErr = errBoom },
			wantRuns: 1,
		},
		{
			name:      "processing fails",
			setup:     func(_ *fixture, processor *recordingProcessor) { processor.err = errBoom },
			wantRuns:  1,
			processed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			processor := &recordingProcessor{}
			tt.setup(f, processor)

			err := newWorker(f, processor).Handle(context.Background(), queuedItem())
			require.Error(t, err)
			assert.ErrorIs(t, err, errBoom)

			runs, _, _ := f.stores.counts()
			assert.Equal(t, tt.wantRuns, runs)
			assert.Len(t, processor.Processed(), tt.processed)
		})
	}
}

func TestWorker_RedeliveryWithoutKeyCreatesAnotherRun(t *testing.T) {
	f := newFixture(t)
	processor := &recordingProcessor{err: errBoom}
	worker := newWorker(f, processor)
	ctx := context.Background()

	require.Error(t, worker.Handle(ctx, queuedItem()))

	processor.err = nil
	require.NoError(t, worker.Handle(ctx, queuedItem()))

	runs, _, _ := f.stores.counts()
	assert.Equal(t, 2, runs)

	processed := processor.Processed()
	require.Len(t, processed, 2)
	assert.NotEqual(t, processed[0].RunID, processed[1].RunID)
}

func TestWorker_RedeliveryWithKeyReusesRun(t *testing.T) {
	f := newFixture(t)
	processor := &recordingProcessor{err: errBoom}
	worker := newWorker(f, processor)
	ctx := context.Background()

	item := queuedItem()
	item.IdempotencyKey = "order-42"

	require.Error(t, worker.Handle(ctx, item))

	processor.err = nil
	require.NoError(t, worker.Handle(ctx, item))

	runs, messages, _ := f.stores.counts()
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, messages)

	processed := processor.Processed()
	require.Len(t, processed, 2)
	assert.Equal(t, processed[0].ID, processed[1].ID)

	run := f.run(t, processed[0].RunID)
	assert.Equal(t, "order-42", run.IdempotencyKey)

	// Once the engine picked the run up, later deliveries leave it alone.
	require.NoError(t, f.reporter.Start(ctx, run.ID))
	require.NoError(t, worker.Handle(ctx, item))
	assert.Len(t, processor.Processed(), 2)
}

func TestWorker_RedeliveryUsesConfiguredResolver(t *testing.T) {
	f := newFixture(t)
	processor := &recordingProcessor{err: errBoom}

	running := runstate.ResolverFunc(func(context.Context, runstate.Record) (models.ResultStatus, bool, error) {
		return models.ResultStatusRunning, true, nil
	})

	worker := subflow.NewWorker(f.stores, f.stores, f.stores, processor, discardLogger(),
		subflow.WithWorkerResolver(runstate.Chain{running}))
	ctx := context.Background()

	item := queuedItem()
	item.IdempotencyKey = "order-44"

	require.Error(t, worker.Handle(ctx, item))

	// The chain reports the run as started, so the redelivery does not trigger it again.
	processor.err = nil
	require.NoError(t, worker.Handle(ctx, item))

	runs, _, _ := f.stores.counts()
	assert.Equal(t, 1, runs)
	assert.Len(t, processor.Processed(), 1)
}

func TestWorker_RedeliveryWithKeyRecreatesMissingTrigger(t *testing.T) {
	f := newFixture(t)
	processor := &recordingProcessor{}
	worker := newWorker(f, processor)
	ctx := context.Background()

	item := queuedItem()
	item.IdempotencyKey = "order-43"

	f.stores.createMessageErr = errBoom
	require.Error(t, worker.Handle(ctx, item))

	f.stores.createMessageErr = nil
	require.NoError(t, worker.Handle(ctx, item))

	runs, messages, _ := f.stores.counts()
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, messages)
	require.Len(t, processor.Processed(), 1)
}

type panickingProcessor struct{}

func (panickingProcessor) ProcessMessage(context.Context, *models.Message) error {
	panic("engine exploded")
}

func TestWorker_ConvertsPanicsToErrors(t *testing.T) {
	f := newFixture(t)
	worker := subflow.NewWorker(f.stores, f.stores, f.stores, panickingProcessor{}, discardLogger())

	err := worker.Handle(context.Background(), queuedItem())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine exploded")
	assert.False(t, errors.Is(err, errBoom))
}
