// Package events defines the run lifecycle events exchanged with the engine that executes sub-workflow runs.
package events

import (
	"time"

	"github.com/dukex/subflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every run lifecycle event.
const Topic = "subflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// RunTriggeredEvent asks the engine to process a run from its trigger message.
	RunTriggeredEvent EventType = "run.triggered"

	// Reported by the engine.
	RunStartedEvent   EventType = "run.started"
	RunCompletedEvent EventType = "run.completed"
	RunFailedEvent    EventType = "run.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps a new event for runID.
func NewBaseEvent(eventType EventType, runID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
	}
}

type RunTriggered struct {
	BaseEvent

	MessageID string            `json:"message_id"`
	Content   string            `json:"content"`
	InputData *models.InputData `json:"input_data,omitempty"`
}

func (r RunTriggered) GetType() EventType {
	return RunTriggeredEvent
}

type RunStarted struct {
	BaseEvent
}

func (r RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunCompleted struct {
	BaseEvent

	Content string         `json:"content"`
	Outputs map[string]any `json:"outputs,omitempty"`
}

func (r RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

type RunFailed struct {
	BaseEvent

	Error string `json:"error"`
}

func (r RunFailed) GetType() EventType {
	return RunFailedEvent
}
