// Package models defines the domain models shared by the sub-workflow coordinator, its stores and its transports.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft       WorkflowStatus = "draft"       // Editable, not executable
	WorkflowStatusPublished   WorkflowStatus = "published"   // Current active, executable
	WorkflowStatusUnpublished WorkflowStatus = "unpublished" // Historical, not executable
)

// Workflow is the opaque unit of work a caller asks the coordinator to run.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"                   validate:"required,min=3"`
	Description string         `json:"description"`
	Status      WorkflowStatus `json:"status"                 validate:"required"`
	InputSchema map[string]any `json:"input_schema,omitempty"` // JSON schema applied to input data
	Metadata    map[string]any `json:"metadata,omitempty"`
	Owner       string         `json:"owner"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty"`
}

// Label is the human readable name used when naming runs and trigger messages.
func (w *Workflow) Label() string {
	if w.Name != "" {
		return w.Name
	}

	return w.ID
}
