package models

import "time"

// MessageRole tells a trigger message apart from the replies produced by a run.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is attached to a run. A user message triggers processing; assistant
// messages are the system-generated replies that carry outputs.
type Message struct {
	ID        string         `json:"id"`
	RunID     string         `json:"run_id"`
	Role      MessageRole    `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
