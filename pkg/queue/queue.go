// Package queue carries fire-and-forget sub-workflow calls from the coordinator to workers.
//
// Delivery is at-least-once. An item whose handler returns an error is delivered again;
// items that cannot be decoded are dropped.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukex/subflow/pkg/models"
)

// Topic is the watermill topic and the Redis key prefix of the execution queue.
const Topic = "subflow.executions"

// Handler processes one item. A returned error asks for redelivery.
type Handler func(ctx context.Context, item models.QueueItem) error

type Queue interface {
	Enqueue(ctx context.Context, item models.QueueItem) error

	// Consume hands items to handler until ctx is cancelled.
	Consume(ctx context.Context, handler Handler) error

	Close() error
}

func encode(item models.QueueItem) ([]byte, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode queue item: %w", err)
	}

	return payload, nil
}

func decode(payload []byte) (models.QueueItem, error) {
	var item models.QueueItem

	err := json.Unmarshal(payload, &item)
	if err != nil {
		return item, fmt.Errorf("failed to decode queue item: %w", err)
	}

	return item, nil
}
