package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/subflow/pkg/events"
	"github.com/dukex/subflow/pkg/models"
)

// RunProcessor starts runs by publishing run.triggered for their trigger message.
type RunProcessor struct {
	publisher EventPublisher
	logger    *slog.Logger
}

func NewRunProcessor(publisher EventPublisher, logger *slog.Logger) *RunProcessor {
	return &RunProcessor{
		publisher: publisher,
		logger:    logger.With("module", "run_processor"),
	}
}

func (p *RunProcessor) ProcessMessage(ctx context.Context, message *models.Message) error {
	event := events.RunTriggered{
		BaseEvent: events.NewBaseEvent(events.RunTriggeredEvent, message.RunID),
		MessageID: message.ID,
		Content:   message.Content,
		InputData: inputData(message.Metadata),
	}

	err := p.publisher.Publish(ctx, message.RunID, event)
	if err != nil {
		return fmt.Errorf("failed to publish run.triggered for run %s: %w", message.RunID, err)
	}

	p.logger.DebugContext(ctx, "run triggered", "session_ref", message.RunID, "message_id", message.ID)

	return nil
}

func inputData(metadata map[string]any) *models.InputData {
	switch data := metadata[models.MetadataInputData].(type) {
	case *models.InputData:
		return models.CloneInputData(data)
	case map[string]any:
		return models.InputDataFromMap(data)
	default:
		return models.NewInputData()
	}
}
