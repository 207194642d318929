package web

import (
	"github.com/dukex/subflow/pkg/models"
)

// ExecuteRequest is the body of POST /executions. Mode is checked by the coordinator,
// which answers unsupported modes with a failed result instead of a 400.
type ExecuteRequest struct {
	WorkflowRef    string                `json:"workflow_ref"              validate:"required"`
	InputData      *models.InputData     `json:"input_data,omitempty"      validate:"-"`
	Mode           string                `json:"mode,omitempty"`
	Timeout        int                   `json:"timeout,omitempty"         validate:"gte=0"`
	PollInterval   int                   `json:"poll_interval,omitempty"   validate:"gte=0"`
	ParentContext  *models.ParentContext `json:"parent_context,omitempty"`
	IdempotencyKey string                `json:"idempotency_key,omitempty" validate:"omitempty,max=255"`
}

// ToModel converts the request body into a coordinator request.
func (r ExecuteRequest) ToModel() models.ExecutionRequest {
	return models.ExecutionRequest{
		WorkflowRef:    r.WorkflowRef,
		InputData:      r.InputData,
		Mode:           models.ExecutionMode(r.Mode),
		Timeout:        r.Timeout,
		PollInterval:   r.PollInterval,
		ParentContext:  r.ParentContext,
		IdempotencyKey: r.IdempotencyKey,
	}
}

// ResultsQuery holds the query parameters of GET /sessions/:id/results.
type ResultsQuery struct {
	Wait         bool `validate:"-"`
	Timeout      int  `validate:"gte=0"`
	PollInterval int  `validate:"gte=0"`
}

// StatusResponse is the body of GET /sessions/:id/status.
type StatusResponse struct {
	SessionRef string              `json:"session_ref"`
	Status     models.ResultStatus `json:"status"`
	Complete   bool                `json:"complete"`
}

// SaveWorkflowRequest registers a workflow that sub-workflow calls can refer to.
type SaveWorkflowRequest struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"                   validate:"required,min=3"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Owner       string         `json:"owner"                  validate:"required"`
}
