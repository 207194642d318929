package subflow_test

import (
	"context"
	"testing"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/persistence/memory"
	"github.com/dukex/subflow/pkg/subflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores_NotFound(t *testing.T) {
	stores := subflow.NewStores(memory.NewPersistence())
	ctx := context.Background()

	_, err := stores.LoadWorkflow(ctx, "missing")
	assert.ErrorIs(t, err, subflow.ErrWorkflowNotFound)

	_, err = stores.LoadRun(ctx, "missing")
	assert.ErrorIs(t, err, subflow.ErrSessionNotFound)

	_, err = stores.FindRunByIdempotencyKey(ctx, "missing")
	assert.ErrorIs(t, err, subflow.ErrSessionNotFound)
}

func TestStores_CreateRunAndTrigger(t *testing.T) {
	processor := &recordingProcessor{}
	p := memory.NewPersistence()
	stores := subflow.NewStores(p, subflow.WithMessageTrigger(processor))
	ctx := context.Background()

	workflow := &models.Workflow{ID: "wf-child", Name: "Child", Status: models.WorkflowStatusPublished}

	record, err := stores.CreateRun(ctx, workflow, "Sub-workflow: Child", map[string]any{
		models.MetadataIdempotencyKey: "key-1",
	})
	require.NoError(t, err)

	run, ok := record.(*models.Run)
	require.True(t, ok)
	assert.Equal(t, models.RunStatusCreated, run.Status)
	assert.Equal(t, "key-1", run.IdempotencyKey)

	found, err := stores.FindRunByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, run.ID, found.GetID())

	_, err = stores.CreateMessage(ctx, run.ID, models.MessageRoleAssistant, "reply", nil)
	require.NoError(t, err)
	assert.Empty(t, processor.Processed())

	message, err := stores.CreateMessage(ctx, run.ID, models.MessageRoleUser, "Execute workflow Child", nil)
	require.NoError(t, err)
	require.Len(t, processor.Processed(), 1)
	assert.Equal(t, message.ID, processor.Processed()[0].ID)

	loaded, err := stores.LoadRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusTriggered, loaded.(*models.Run).Status)
}

func TestStores_TriggerFailureIsReported(t *testing.T) {
	processor := &recordingProcessor{err: errBoom}
	p := memory.NewPersistence()
	stores := subflow.NewStores(p, subflow.WithMessageTrigger(processor))
	ctx := context.Background()

	record, err := stores.CreateRun(ctx, &models.Workflow{ID: "wf"}, "Sub-workflow: wf", nil)
	require.NoError(t, err)

	message, err := stores.CreateMessage(ctx, record.GetID(), models.MessageRoleUser, "Execute workflow wf", nil)
	assert.ErrorIs(t, err, errBoom)
	assert.NotNil(t, message)
}
