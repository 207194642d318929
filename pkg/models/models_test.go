package models_test

import (
	"encoding/json"
	"testing"

	"github.com/dukex/subflow/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func TestExecutionMode_IsValid(t *testing.T) {
	assert.True(t, models.ModeJob.IsValid())
	assert.True(t, models.ModeJobAsync.IsValid())
	assert.True(t, models.ModeJobFireForget.IsValid())
	assert.False(t, models.ExecutionMode("").IsValid())
	assert.False(t, models.ExecutionMode("JOB").IsValid())
}

func TestResultStatus_IsTerminal(t *testing.T) {
	terminal := map[models.ResultStatus]bool{
		models.ResultStatusCompleted: true,
		models.ResultStatusFailed:    true,
		models.ResultStatusRunning:   false,
		models.ResultStatusPending:   false,
		models.ResultStatusTimeout:   false,
	}

	for status, expected := range terminal {
		assert.Equal(t, expected, status.IsTerminal(), status)
	}
}

func TestResultConstructors(t *testing.T) {
	outputs := map[string]any{"summary": "ok"}
	completed := models.CompletedResult("run-1", outputs, 1200)
	outputs["summary"] = "changed"

	assert.True(t, completed.Success)
	assert.Equal(t, "ok", completed.Outputs["summary"], "outputs are copied")
	assert.Empty(t, completed.ErrorMessage)

	assert.NotNil(t, models.CompletedResult("run-1", nil, 0).Outputs)

	failed := models.FailedResult("", "boom", 3)
	assert.False(t, failed.Success)
	assert.Equal(t, models.ResultStatusFailed, failed.Status)
	assert.Nil(t, failed.Outputs)

	timeout := models.TimeoutResult("run-1", "too slow", 3000)
	assert.False(t, timeout.Success)
	assert.Equal(t, "run-1", timeout.SessionRef)

	pending := models.PendingResult("", "job-1", 0)
	assert.True(t, pending.Success)
	assert.Equal(t, "job-1", pending.JobRef)

	running := models.RunningResult("run-1", 10)
	assert.True(t, running.Success)
	assert.Equal(t, models.ResultStatusRunning, running.Status)
}

func TestExecutionResult_JSONOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(models.PendingResult("", "job-1", 0))
	require.NoError(t, err)

	assert.JSONEq(t, `{"success": true, "status": "pending", "job_ref": "job-1", "elapsed_ms": 0}`, string(data))
}

func TestParentContext_Next(t *testing.T) {
	var root *models.ParentContext

	first := root.Next("wf-a")
	assert.Equal(t, 1, first.ExecutionDepth)
	assert.Equal(t, []string{"wf-a"}, first.WorkflowChain)

	first.SessionRef = "run-a"
	second := first.Next("wf-b")
	assert.Equal(t, 2, second.ExecutionDepth)
	assert.Equal(t, []string{"wf-a", "wf-b"}, second.WorkflowChain)
	assert.Equal(t, "run-a", second.SessionRef)

	second.WorkflowChain[0] = "mutated"
	assert.Equal(t, "wf-a", first.WorkflowChain[0], "deriving never shares the chain")

	assert.True(t, first.Contains("wf-a"))
	assert.False(t, root.Contains("wf-a"))
	assert.Equal(t, 0, root.Depth())
	assert.Empty(t, root.Chain())
}

func TestParentContextFromMetadata(t *testing.T) {
	stored := models.ParentContext{ExecutionDepth: 2, WorkflowChain: []string{"wf-a", "wf-b"}, SessionRef: "run-a"}

	t.Run("stored map", func(t *testing.T) {
		parent, ok := models.ParentContextFromMetadata(map[string]any{models.MetadataParentContext: stored.ToMap()})
		require.True(t, ok)
		assert.Equal(t, stored, parent)
	})

	t.Run("json round trip", func(t *testing.T) {
		data, err := json.Marshal(map[string]any{models.MetadataParentContext: stored.ToMap()})
		require.NoError(t, err)

		var metadata map[string]any
		require.NoError(t, json.Unmarshal(data, &metadata))

		parent, ok := models.ParentContextFromMetadata(metadata)
		require.True(t, ok)
		assert.Equal(t, stored, parent)
	})

	t.Run("struct", func(t *testing.T) {
		parent, ok := models.ParentContextFromMetadata(map[string]any{models.MetadataParentContext: &stored})
		require.True(t, ok)
		assert.Equal(t, stored, parent)
	})

	t.Run("missing", func(t *testing.T) {
		_, ok := models.ParentContextFromMetadata(map[string]any{})
		assert.False(t, ok)
	})
}

func TestParentContextFromRun(t *testing.T) {
	child := models.ParentContext{ExecutionDepth: 1, WorkflowChain: []string{"wf-child"}}

	run := &models.Run{
		ID:         "run-child",
		WorkflowID: "wf-child",
		Metadata:   map[string]any{models.MetadataParentContext: child.ToMap()},
	}

	parent := models.ParentContextFromRun(run)
	assert.Equal(t, 1, parent.ExecutionDepth)
	assert.Equal(t, []string{"wf-child"}, parent.WorkflowChain)
	assert.Equal(t, "run-child", parent.SessionRef)

	grandchild := parent.Next("wf-grandchild")
	assert.Equal(t, 2, grandchild.ExecutionDepth)
	assert.Equal(t, "run-child", grandchild.SessionRef)

	bare := models.ParentContextFromRun(&models.Run{ID: "run-x", WorkflowID: "wf-x"})
	assert.Equal(t, []string{"wf-x"}, bare.WorkflowChain)
	assert.Equal(t, "run-x", bare.SessionRef)
}

func TestInputData_KeepsOrder(t *testing.T) {
	data := models.NewInputData(
		orderedmap.Pair[string, any]{Key: "zeta", Value: 1},
		orderedmap.Pair[string, any]{Key: "alpha", Value: "two"},
	)

	encoded, err := json.Marshal(data)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":"two"}`, string(encoded))

	clone := models.CloneInputData(data)
	clone.Set("beta", true)
	assert.Equal(t, 2, data.Len())
	assert.Equal(t, 3, clone.Len())

	assert.Equal(t, map[string]any{"zeta": 1, "alpha": "two"}, models.InputDataToMap(data))
	assert.Empty(t, models.InputDataToMap(nil))
	assert.Equal(t, 0, models.CloneInputData(nil).Len())
}

func TestQueueItem_JSONKeepsInputOrder(t *testing.T) {
	var item models.QueueItem
	require.NoError(t, json.Unmarshal([]byte(`{
		"workflow_ref": "wf-child",
		"input_data": {"b": 1, "a": 2},
		"parent_context": {"execution_depth": 1, "workflow_chain": ["wf-child"]}
	}`), &item))

	keys := []string{}
	for pair := item.InputData.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}

	assert.Equal(t, []string{"b", "a"}, keys)
	assert.Equal(t, 1, item.ParentContext.ExecutionDepth)
}

func TestWorkflow_Validation(t *testing.T) {
	validate := validator.New()

	err := validate.Struct(&models.Workflow{ID: "wf-1", Name: "Summarize", Status: models.WorkflowStatusPublished})
	require.NoError(t, err)

	err = validate.Struct(&models.Workflow{ID: "wf-1", Name: "ab", Status: models.WorkflowStatusPublished})
	require.Error(t, err)

	assert.Equal(t, "Summarize", (&models.Workflow{ID: "wf-1", Name: "Summarize"}).Label())
	assert.Equal(t, "wf-1", (&models.Workflow{ID: "wf-1"}).Label())
}
