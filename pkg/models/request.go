package models

// ExecutionRequest is what a calling workflow hands to the coordinator.
type ExecutionRequest struct {
	WorkflowRef    string
	InputData      *InputData
	Mode           ExecutionMode
	Timeout        int // seconds, job mode only
	PollInterval   int // milliseconds
	ParentContext  *ParentContext
	IdempotencyKey string // fire-and-forget only
}
