package runstate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/runstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bareRecord has no status capability.
type bareRecord struct {
	id       string
	metadata map[string]any
}

func (r bareRecord) GetID() string               { return r.id }
func (r bareRecord) GetMetadata() map[string]any { return r.metadata }

type replyStub struct {
	replies map[string][]*models.Message
	err     error
	calls   int
}

func (s *replyStub) LoadMessagesByRun(_ context.Context, runRef string, role models.MessageRole) ([]*models.Message, error) {
	s.calls++

	if s.err != nil {
		return nil, s.err
	}

	var result []*models.Message

	for _, message := range s.replies[runRef] {
		if message.Role == role {
			result = append(result, message)
		}
	}

	return result, nil
}

func TestMapRunStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw      string
		expected models.ResultStatus
		known    bool
	}{
		{"completed", models.ResultStatusCompleted, true},
		{"finished", models.ResultStatusCompleted, true},
		{"FAILED", models.ResultStatusFailed, true},
		{"error", models.ResultStatusFailed, true},
		{"running", models.ResultStatusRunning, true},
		{" processing ", models.ResultStatusRunning, true},
		{"pending", "", false},
		{"created", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			status, known := runstate.MapRunStatus(tt.raw)
			assert.Equal(t, tt.known, known)
			assert.Equal(t, tt.expected, status)
		})
	}
}

func TestDefaultChain_ExplicitStatusFirst(t *testing.T) {
	t.Parallel()

	replies := &replyStub{replies: map[string][]*models.Message{
		"run-1": {{ID: "m1", RunID: "run-1", Role: models.MessageRoleAssistant, Content: "partial"}},
	}}
	chain := runstate.DefaultChain(replies)

	status, err := chain.Resolve(context.Background(), &models.Run{ID: "run-1", Status: models.RunStatusRunning})
	require.NoError(t, err)

	assert.Equal(t, models.ResultStatusRunning, status)
	assert.Equal(t, 0, replies.calls, "replies must not be consulted when the status is explicit")
}

func TestDefaultChain_ReplyHeuristic(t *testing.T) {
	t.Parallel()

	replies := &replyStub{replies: map[string][]*models.Message{
		"run-1": {
			{ID: "m0", RunID: "run-1", Role: models.MessageRoleUser, Content: "go"},
			{ID: "m1", RunID: "run-1", Role: models.MessageRoleAssistant, Content: "done"},
		},
		"run-2": {
			{ID: "m2", RunID: "run-2", Role: models.MessageRoleUser, Content: "go"},
		},
	}}
	chain := runstate.DefaultChain(replies)

	t.Run("record without status capability and a reply", func(t *testing.T) {
		status, err := chain.Resolve(context.Background(), bareRecord{id: "run-1"})
		require.NoError(t, err)
		assert.Equal(t, models.ResultStatusCompleted, status)
	})

	t.Run("unknown explicit status and a reply", func(t *testing.T) {
		status, err := chain.Resolve(context.Background(), &models.Run{ID: "run-1", Status: models.RunStatusTriggered})
		require.NoError(t, err)
		assert.Equal(t, models.ResultStatusCompleted, status)
	})

	t.Run("only the trigger message", func(t *testing.T) {
		status, err := chain.Resolve(context.Background(), bareRecord{id: "run-2"})
		require.NoError(t, err)
		assert.Equal(t, models.ResultStatusPending, status)
	})
}

func TestChain_PropagatesLoaderErrors(t *testing.T) {
	t.Parallel()

	replies := &replyStub{err: errors.New("store unavailable")}

	_, err := runstate.DefaultChain(replies).Resolve(context.Background(), bareRecord{id: "run-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")
}

func TestChain_CustomPolicy(t *testing.T) {
	t.Parallel()

	alwaysFailed := runstate.ResolverFunc(func(context.Context, runstate.Record) (models.ResultStatus, bool, error) {
		return models.ResultStatusFailed, true, nil
	})

	status, err := runstate.Chain{alwaysFailed}.Resolve(context.Background(), bareRecord{id: "run-1"})
	require.NoError(t, err)
	assert.Equal(t, models.ResultStatusFailed, status)

	status, err = runstate.Chain{}.Resolve(context.Background(), bareRecord{id: "run-1"})
	require.NoError(t, err)
	assert.Equal(t, models.ResultStatusPending, status)
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "boom", runstate.ErrorMessage(bareRecord{metadata: map[string]any{"error_message": "boom"}}))
	assert.Equal(t, "sub-workflow execution failed", runstate.ErrorMessage(bareRecord{}))
}
