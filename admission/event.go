package admission

import (
	"time"

	"github.com/pithecene-io/cicore/adapter"
	"github.com/pithecene-io/cicore/types"
)

// RejectionEvent builds the event published for a rejected pipeline.
func RejectionEvent(policy string, req Request, d Decision, at time.Time) *adapter.PipelineRejectedEvent {
	vs := make([]adapter.Violation, 0, len(d.Violations))
	for _, v := range d.Violations {
		vs = append(vs, adapter.Violation{
			Kind:    string(v.Kind),
			Limit:   v.Limit,
			Current: v.Current,
			Excess:  v.Excess,
			Message: v.Message,
		})
	}

	return &adapter.PipelineRejectedEvent{
		ContractVersion: types.Version,
		EventType:       adapter.EventTypePipelineRejected,
		NamespaceID:     req.NamespaceID,
		ProjectID:       req.ProjectID,
		PipelineID:      req.PipelineID,
		Ref:             req.Ref,
		Policy:          policy,
		Reason:          d.Reason(),
		Violations:      vs,
		Timestamp:       at.UTC().Format(time.RFC3339),
	}
}
