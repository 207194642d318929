package models

import "time"

// RunStatus is the raw status stored on a run record by the engine executing it.
type RunStatus string

const (
	RunStatusCreated    RunStatus = "created"
	RunStatusTriggered  RunStatus = "triggered"
	RunStatusPending    RunStatus = "pending"
	RunStatusRunning    RunStatus = "running"
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFinished   RunStatus = "finished"
	RunStatusFailed     RunStatus = "failed"
	RunStatusError      RunStatus = "error"
)

// Run is the durable record of one execution attempt (a "session").
type Run struct {
	ID             string         `json:"id"`
	WorkflowID     string         `json:"workflow_id"`
	Name           string         `json:"name"`
	Status         RunStatus      `json:"status"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (r *Run) GetID() string {
	return r.ID
}

func (r *Run) GetMetadata() map[string]any {
	return r.Metadata
}

func (r *Run) GetStatus() string {
	return string(r.Status)
}
