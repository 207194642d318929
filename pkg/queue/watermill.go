package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/subflow/pkg/models"
)

const (
	workflowRefMetadataKey = "workflow_ref"
	jobRefMetadataKey      = "job_ref"
)

// WatermillQueue runs the queue over a watermill publisher and subscriber, Kafka or an in-process channel.
type WatermillQueue struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
}

func NewWatermillQueue(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillQueue {
	return &WatermillQueue{
		publisher:  pub,
		subscriber: sub,
		logger:     logger.With("module", "watermill_queue", "topic", Topic),
	}
}

func (q *WatermillQueue) Enqueue(ctx context.Context, item models.QueueItem) error {
	payload, err := encode(item)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(workflowRefMetadataKey, item.WorkflowRef)
	msg.Metadata.Set(jobRefMetadataKey, item.JobRef)

	err = q.publisher.Publish(Topic, msg)
	if err != nil {
		return fmt.Errorf("failed to publish queue item: %w", err)
	}

	return nil
}

func (q *WatermillQueue) Consume(ctx context.Context, handler Handler) error {
	messages, err := q.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", Topic, err)
	}

	q.logger.InfoContext(ctx, "Consuming execution queue")

	for msg := range messages {
		item, err := decode(msg.Payload)
		if err != nil {
			q.logger.ErrorContext(ctx, "Dropping malformed queue item", "message_id", msg.UUID, "error", err)
			msg.Ack()

			continue
		}

		err = handler(ctx, item)
		if err != nil {
			q.logger.WarnContext(ctx, "Queue item failed, requesting redelivery",
				"message_id", msg.UUID,
				"workflow_ref", item.WorkflowRef,
				"error", err,
			)
			msg.Nack()

			continue
		}

		msg.Ack()
	}

	q.logger.InfoContext(ctx, "Execution queue consumer stopped")

	return nil
}

func (q *WatermillQueue) Close() error {
	err := q.publisher.Close()
	if err != nil {
		return err
	}

	return q.subscriber.Close()
}
