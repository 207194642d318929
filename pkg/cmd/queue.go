package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/subflow/pkg/queue"
)

// NewQueue builds the execution queue: gochannel (single process), kafka or redis.
func NewQueue(ctx context.Context, provider, redisURL string, logger *slog.Logger, serviceName string) (queue.Queue, error) {
	logger.InfoContext(ctx, "Initializing execution queue", "provider", provider)

	switch provider {
	case "redis":
		client, err := queue.NewRedisClient(ctx, redisURL)
		if err != nil {
			return nil, err
		}

		return queue.NewRedisQueue(client, logger), nil
	case "kafka", "gochannel", "":
		pub, sub, err := newPubSub(provider, logger, serviceName+"-executions")
		if err != nil {
			return nil, fmt.Errorf("failed to create execution queue: %w", err)
		}

		return queue.NewWatermillQueue(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("unsupported queue provider: %s", provider)
	}
}
