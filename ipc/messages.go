package ipc

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/cicore/admission"
	"github.com/pithecene-io/cicore/status"
	"github.com/pithecene-io/cicore/types"
)

// Frame type discriminants.
const (
	TypeAggregate = "aggregate"
	TypeMatch     = "match"
	TypeQuota     = "quota"
	TypeResult    = "result"
)

// AggregateRequest asks for the composite status of a set of entries, or
// of a pipeline when Stages is set.
type AggregateRequest struct {
	Type    string         `msgpack:"type"`
	ID      string         `msgpack:"id"`
	Entries []status.Entry `msgpack:"entries,omitempty"`
	Stages  []status.Stage `msgpack:"stages,omitempty"`
}

// MatchRequest asks which runners may pick up a job. When Runners is
// empty the server's configured runners are used.
type MatchRequest struct {
	Type             string               `msgpack:"type"`
	ID               string               `msgpack:"id"`
	Tags             []string             `msgpack:"tags"`
	Protected        bool                 `msgpack:"protected"`
	PublicProject    bool                 `msgpack:"public_project"`
	MinutesExhausted bool                 `msgpack:"minutes_exhausted"`
	Runners          []types.RunnerRecord `msgpack:"runners,omitempty"`
}

// Job converts the request into a job requirement with normalized tags.
func (r *MatchRequest) Job() types.JobRequirement {
	return types.JobRequirement{
		Tags:             types.NewTagSet(r.Tags...),
		Protected:        r.Protected,
		PublicProject:    r.PublicProject,
		MinutesExhausted: r.MinutesExhausted,
	}
}

// Counts are the live values a quota request is checked against.
type Counts struct {
	ActivePipelines int64 `msgpack:"active_pipelines"`
	ActiveJobs      int64 `msgpack:"active_jobs"`
	PipelineSize    int64 `msgpack:"pipeline_size"`
}

// Limits overrides the server's configured limits for one request.
type Limits struct {
	ActivePipelines int64 `msgpack:"ci_active_pipelines"`
	ActiveJobs      int64 `msgpack:"ci_active_jobs"`
	PipelineSize    int64 `msgpack:"ci_pipeline_size"`
}

// QuotaRequest asks the admission policy whether a pipeline may be created.
type QuotaRequest struct {
	Type        string  `msgpack:"type"`
	ID          string  `msgpack:"id"`
	NamespaceID int64   `msgpack:"namespace_id"`
	ProjectID   int64   `msgpack:"project_id"`
	PipelineID  int64   `msgpack:"pipeline_id,omitempty"`
	Ref         string  `msgpack:"ref,omitempty"`
	Counts      Counts  `msgpack:"counts"`
	Limits      *Limits `msgpack:"limits,omitempty"`
}

// Response is the single response frame type. Only the fields relevant to
// the request type are set.
type Response struct {
	Type      string               `msgpack:"type"`
	ID        string               `msgpack:"id"`
	OK        bool                 `msgpack:"ok"`
	Error     string               `msgpack:"error,omitempty"`
	Status    types.Status         `msgpack:"status,omitempty"`
	Stages    []status.StageStatus `msgpack:"stages,omitempty"`
	RunnerIDs []int64              `msgpack:"runner_ids,omitempty"`
	Decision  *admission.Decision  `msgpack:"decision,omitempty"`
}

// framePeek reads only the discriminant and id.
type framePeek struct {
	Type string `msgpack:"type"`
	ID   string `msgpack:"id"`
}

func peek(payload []byte) (framePeek, error) {
	var p framePeek
	if err := msgpack.Unmarshal(payload, &p); err != nil {
		return framePeek{}, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode frame type", Err: err}
	}
	return p, nil
}

// DecodeRequest decodes a payload into *AggregateRequest, *MatchRequest or
// *QuotaRequest based on its type field.
func DecodeRequest(payload []byte) (any, error) {
	p, err := peek(payload)
	if err != nil {
		return nil, err
	}

	var req any
	switch p.Type {
	case TypeAggregate:
		req = &AggregateRequest{}
	case TypeMatch:
		req = &MatchRequest{}
	case TypeQuota:
		req = &QuotaRequest{}
	default:
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("unknown frame type %q", p.Type)}
	}

	if err := msgpack.Unmarshal(payload, req); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode " + p.Type + " request", Err: err}
	}
	return req, nil
}
