// Package eventbus exchanges run lifecycle events with the engine over watermill.
//
// The coordinator side publishes run.triggered when a trigger message is stored; the
// engine answers with run.started, run.completed or run.failed for the same run.
package eventbus

import (
	"context"

	"github.com/dukex/subflow/pkg/events"
)

// Event is any run event carried on the bus.
type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	// Publish sends event keyed by key, the run id, so that events of one run share a partition.
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a decoded event such as *events.RunCompleted. A returned error redelivers the event.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
