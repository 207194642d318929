package runstate

import (
	"context"
	"fmt"

	"github.com/dukex/subflow/pkg/models"
)

// ContentKey holds the text of the last system reply in the outputs.
const ContentKey = "content"

// MergeOutputs folds replies in order. The content of the last reply wins even
// when it is empty, and each reply's metadata outputs are shallow-merged over
// the earlier ones.
func MergeOutputs(replies []*models.Message) map[string]any {
	outputs := map[string]any{}

	for _, reply := range replies {
		if reply == nil || reply.Role != models.MessageRoleAssistant {
			continue
		}

		outputs[ContentKey] = reply.Content

		if structured, ok := reply.Metadata[models.MetadataOutputs].(map[string]any); ok {
			for key, value := range structured {
				outputs[key] = value
			}
		}
	}

	return outputs
}

// ExtractOutputs collects the outputs of a completed run.
func ExtractOutputs(ctx context.Context, replies ReplyLoader, record Record) (map[string]any, error) {
	messages, err := replies.LoadMessagesByRun(ctx, record.GetID(), models.MessageRoleAssistant)
	if err != nil {
		return nil, fmt.Errorf("failed to load outputs for run %s: %w", record.GetID(), err)
	}

	return MergeOutputs(messages), nil
}
