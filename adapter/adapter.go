// Package adapter defines the boundary for publishing admission decisions
// to downstream systems.
//
// Adapters publish pipeline rejection notifications so the web application
// can surface them to the user who triggered the pipeline.
package adapter

import "context"

// EventTypePipelineRejected is the event type of PipelineRejectedEvent.
const EventTypePipelineRejected = "pipeline_rejected"

// Violation is one exceeded limit inside a rejection event.
type Violation struct {
	Kind    string `json:"kind"`
	Limit   int64  `json:"limit"`
	Current int64  `json:"current"`
	Excess  int64  `json:"excess"`
	Message string `json:"message"`
}

// PipelineRejectedEvent is the payload published when admission rejects
// a pipeline.
type PipelineRejectedEvent struct {
	ContractVersion string      `json:"contract_version"`
	EventType       string      `json:"event_type"` // always "pipeline_rejected"
	NamespaceID     int64       `json:"namespace_id"`
	ProjectID       int64       `json:"project_id"`
	PipelineID      int64       `json:"pipeline_id,omitempty"`
	Ref             string      `json:"ref,omitempty"`
	Policy          string      `json:"policy"`
	Reason          string      `json:"reason"`
	Violations      []Violation `json:"violations"`
	Timestamp       string      `json:"timestamp"` // RFC 3339
}

// Adapter publishes rejection events to a downstream system.
type Adapter interface {
	// Publish sends a rejection event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *PipelineRejectedEvent) error

	// Close releases adapter resources.
	Close() error
}
