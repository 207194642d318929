package models

// QueueItem is the durable fire-and-forget request. Delivery is at-least-once,
// so the same item may be handled more than once.
type QueueItem struct {
	WorkflowRef    string        `json:"workflow_ref"`
	InputData      *InputData    `json:"input_data"`
	ParentContext  ParentContext `json:"parent_context"`
	JobRef         string        `json:"job_ref,omitempty"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
}
