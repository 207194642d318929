package recursion_test

import (
	"testing"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/recursion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		parent        *models.ParentContext
		workflowRef   string
		maxDepth      int
		expectedErr   error
		expectedDepth int
		expectedChain []string
	}{
		{
			name:          "top level call",
			parent:        nil,
			workflowRef:   "wf-a",
			maxDepth:      5,
			expectedDepth: 1,
			expectedChain: []string{"wf-a"},
		},
		{
			name:          "nested call appends to chain",
			parent:        &models.ParentContext{ExecutionDepth: 2, WorkflowChain: []string{"wf-a", "wf-b"}},
			workflowRef:   "wf-c",
			maxDepth:      5,
			expectedDepth: 3,
			expectedChain: []string{"wf-a", "wf-b", "wf-c"},
		},
		{
			name:          "last allowed depth",
			parent:        &models.ParentContext{ExecutionDepth: 4, WorkflowChain: []string{"a", "b", "c", "d"}},
			workflowRef:   "e",
			maxDepth:      5,
			expectedDepth: 5,
			expectedChain: []string{"a", "b", "c", "d", "e"},
		},
		{
			name:        "depth at limit is rejected",
			parent:      &models.ParentContext{ExecutionDepth: 5, WorkflowChain: []string{"a", "b", "c", "d", "e"}},
			workflowRef: "f",
			maxDepth:    5,
			expectedErr: recursion.ErrMaxDepthExceeded,
		},
		{
			name:        "direct self reference",
			parent:      &models.ParentContext{ExecutionDepth: 1, WorkflowChain: []string{"wf-a"}},
			workflowRef: "wf-a",
			maxDepth:    5,
			expectedErr: recursion.ErrCircularReference,
		},
		{
			name:        "indirect cycle",
			parent:      &models.ParentContext{ExecutionDepth: 2, WorkflowChain: []string{"wf-a", "wf-b"}},
			workflowRef: "wf-a",
			maxDepth:    5,
			expectedErr: recursion.ErrCircularReference,
		},
		{
			name:        "negative parent depth is rejected",
			parent:      &models.ParentContext{ExecutionDepth: -100, WorkflowChain: []string{}},
			workflowRef: "wf-a",
			maxDepth:    5,
			expectedErr: recursion.ErrInvalidDepth,
		},
		{
			name:        "negative depth one below top level",
			parent:      &models.ParentContext{ExecutionDepth: -1},
			workflowRef: "wf-a",
			maxDepth:    5,
			expectedErr: recursion.ErrInvalidDepth,
		},
		{
			name:          "zero max depth falls back to default",
			parent:        &models.ParentContext{ExecutionDepth: 4, WorkflowChain: []string{}},
			workflowRef:   "wf-a",
			maxDepth:      0,
			expectedDepth: 5,
			expectedChain: []string{"wf-a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			next, err := recursion.Check(tt.parent, tt.workflowRef, tt.maxDepth)

			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)

				var guardErr *recursion.Error
				require.ErrorAs(t, err, &guardErr)
				assert.Equal(t, tt.workflowRef, guardErr.WorkflowRef)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedDepth, next.ExecutionDepth)
			assert.Equal(t, tt.expectedChain, next.WorkflowChain)
		})
	}
}

func TestCheck_DoesNotMutateParent(t *testing.T) {
	t.Parallel()

	chain := make([]string, 1, 8)
	chain[0] = "wf-a"
	parent := &models.ParentContext{ExecutionDepth: 1, WorkflowChain: chain, SessionRef: "session-1"}

	first, err := recursion.Check(parent, "wf-b", 5)
	require.NoError(t, err)

	second, err := recursion.Check(parent, "wf-c", 5)
	require.NoError(t, err)

	assert.Equal(t, 1, parent.ExecutionDepth)
	assert.Equal(t, []string{"wf-a"}, parent.WorkflowChain)
	assert.Equal(t, []string{"wf-a", "wf-b"}, first.WorkflowChain)
	assert.Equal(t, []string{"wf-a", "wf-c"}, second.WorkflowChain)
	assert.Equal(t, "session-1", first.SessionRef)
}

func TestCheck_DepthWinsOverCycle(t *testing.T) {
	t.Parallel()

	parent := &models.ParentContext{ExecutionDepth: 9, WorkflowChain: []string{"wf-a"}}

	_, err := recursion.Check(parent, "wf-a", 5)
	require.Error(t, err)
	assert.True(t, recursion.IsMaxDepthExceeded(err))
	assert.False(t, recursion.IsCircularReference(err))
	assert.Contains(t, err.Error(), "depth 10 exceeds the limit of 5")
}

func TestCheck_CycleMessage(t *testing.T) {
	t.Parallel()

	parent := &models.ParentContext{ExecutionDepth: 2, WorkflowChain: []string{"wf-a", "wf-b"}}

	_, err := recursion.Check(parent, "wf-b", 5)
	require.Error(t, err)
	assert.True(t, recursion.IsCircularReference(err))
	assert.Contains(t, err.Error(), "wf-a -> wf-b")
}

func TestCheck_NegativeDepthMessage(t *testing.T) {
	t.Parallel()

	parent := &models.ParentContext{ExecutionDepth: -100, WorkflowChain: []string{"wf-a"}}

	_, err := recursion.Check(parent, "wf-a", 5)
	require.Error(t, err)
	assert.True(t, recursion.IsInvalidDepth(err))
	assert.False(t, recursion.IsMaxDepthExceeded(err))
	assert.False(t, recursion.IsCircularReference(err))
	assert.Contains(t, err.Error(), "parent depth -100 is negative for workflow wf-a")
}
