package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/subflow/pkg/channels/gochannel"
	"github.com/dukex/subflow/pkg/channels/kafka"
	"github.com/dukex/subflow/pkg/eventbus"
)

// NewEventBus builds the run event bus. serviceName is the Kafka consumer group.
func NewEventBus(provider string, logger *slog.Logger, serviceName string) (*eventbus.WatermillEventBus, error) {
	pub, sub, err := newPubSub(provider, logger, serviceName+"-events")
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}

	return eventbus.NewWatermillEventBus(pub, sub), nil
}

func newPubSub(provider string, logger *slog.Logger, consumerGroup string) (message.Publisher, message.Subscriber, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		brokers, err := kafka.BrokersFromEnv()
		if err != nil {
			return nil, nil, err
		}

		pub, sub, err := kafka.CreateChannel(wmLogger, brokers, consumerGroup)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return pub, sub, nil
	case "gochannel", "":
		return gochannel.CreateChannel(wmLogger)
	default:
		return nil, nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
