package models

import "slices"

// Metadata keys written on run records and trigger messages.
const (
	MetadataInputData       = "input_data"
	MetadataParentContext   = "parent_context"
	MetadataQueuedExecution = "queued_execution"
	MetadataIdempotencyKey  = "idempotency_key"
	MetadataErrorMessage    = "error_message"
	MetadataOutputs         = "outputs"
	MetadataJobRef          = "job_ref"
)

// ParentContext travels with every nested sub-workflow call. It is a value:
// each hop derives a new context instead of changing the one it received.
type ParentContext struct {
	ExecutionDepth int      `json:"execution_depth"              validate:"gte=0"`
	WorkflowChain  []string `json:"workflow_chain"`
	SessionRef     string   `json:"parent_session_ref,omitempty"`
}

// Depth returns the execution depth of a possibly absent context.
func (p *ParentContext) Depth() int {
	if p == nil {
		return 0
	}

	return p.ExecutionDepth
}

// Chain returns a copy of the workflow chain of a possibly absent context.
func (p *ParentContext) Chain() []string {
	if p == nil {
		return []string{}
	}

	return slices.Clone(p.WorkflowChain)
}

// Contains reports whether workflowRef was already entered along this chain.
func (p *ParentContext) Contains(workflowRef string) bool {
	if p == nil {
		return false
	}

	return slices.Contains(p.WorkflowChain, workflowRef)
}

// Next derives the context handed to the child run of workflowRef.
func (p *ParentContext) Next(workflowRef string) ParentContext {
	next := ParentContext{
		ExecutionDepth: p.Depth() + 1,
		WorkflowChain:  append(p.Chain(), workflowRef),
	}

	if p != nil {
		next.SessionRef = p.SessionRef
	}

	return next
}

// ToMap renders the context the way it is stored in run metadata.
func (p ParentContext) ToMap() map[string]any {
	chain := make([]any, 0, len(p.WorkflowChain))
	for _, ref := range p.WorkflowChain {
		chain = append(chain, ref)
	}

	m := map[string]any{
		"execution_depth": p.ExecutionDepth,
		"workflow_chain":  chain,
	}

	if p.SessionRef != "" {
		m["parent_session_ref"] = p.SessionRef
	}

	return m
}

// ParentContextFromMetadata reads a context previously stored with ToMap. Values that went
// through a JSON round trip arrive as float64 and []any, so both shapes are accepted.
func ParentContextFromMetadata(metadata map[string]any) (ParentContext, bool) {
	switch raw := metadata[MetadataParentContext].(type) {
	case ParentContext:
		return ParentContext{
			ExecutionDepth: raw.ExecutionDepth,
			WorkflowChain:  slices.Clone(raw.WorkflowChain),
			SessionRef:     raw.SessionRef,
		}, true
	case *ParentContext:
		if raw == nil {
			return ParentContext{}, false
		}

		return ParentContextFromMetadata(map[string]any{MetadataParentContext: *raw})
	case map[string]any:
		parent := ParentContext{WorkflowChain: []string{}}

		switch depth := raw["execution_depth"].(type) {
		case int:
			parent.ExecutionDepth = depth
		case int64:
			parent.ExecutionDepth = int(depth)
		case float64:
			parent.ExecutionDepth = int(depth)
		}

		switch chain := raw["workflow_chain"].(type) {
		case []string:
			parent.WorkflowChain = slices.Clone(chain)
		case []any:
			for _, item := range chain {
				if ref, ok := item.(string); ok {
					parent.WorkflowChain = append(parent.WorkflowChain, ref)
				}
			}
		}

		parent.SessionRef, _ = raw["parent_session_ref"].(string)

		return parent, true
	default:
		return ParentContext{}, false
	}
}

// ParentContextFromRun rebuilds the context a running child passes on when it calls
// its own sub-workflow: the stored context, with the child's run as the parent session.
func ParentContextFromRun(run *Run) ParentContext {
	parent, ok := ParentContextFromMetadata(run.Metadata)
	if !ok {
		parent = ParentContext{WorkflowChain: []string{run.WorkflowID}}
	}

	parent.SessionRef = run.ID

	return parent
}
