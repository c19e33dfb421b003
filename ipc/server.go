package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pithecene-io/cicore/admission"
	"github.com/pithecene-io/cicore/log"
	"github.com/pithecene-io/cicore/matching"
	"github.com/pithecene-io/cicore/metrics"
	"github.com/pithecene-io/cicore/quota"
	"github.com/pithecene-io/cicore/status"
	"github.com/pithecene-io/cicore/types"
)

// ServerOptions configures a Server.
type ServerOptions struct {
	// Runners are used by match requests that carry no runners.
	Runners []types.RunnerRecord
	// Limits are used by quota requests that carry no limits.
	Limits Limits
	// Policy decides quota requests. Nil uses a strict policy.
	Policy admission.Policy
	// Logger receives server logs. Nil discards them.
	Logger *log.Logger
	// Metrics receives counters. May be nil.
	Metrics *metrics.Collector
}

// Server answers framed requests one at a time.
type Server struct {
	opts ServerOptions
}

// NewServer creates a server.
func NewServer(opts ServerOptions) *Server {
	if opts.Policy == nil {
		opts.Policy = admission.NewStrictPolicy(admission.Options{Logger: opts.Logger})
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	return &Server{opts: opts}
}

// Serve reads request frames from r and writes one response frame per
// request to w, until r reaches EOF or ctx is canceled.
//
// Undecodable payloads get an error response and the loop continues.
// Partial or oversized frames end the loop with an error.
//
// Frames are read on a separate goroutine so cancellation does not wait
// for input. That goroutine exits once its pending Read on r returns.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	frames := make(chan frameResult)
	done := make(chan struct{})
	defer close(done)
	go readFrames(NewFrameDecoder(r), frames, done)

	enc := NewFrameEncoder(w)
	for {
		var f frameResult
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f = <-frames:
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if errors.Is(f.err, io.EOF) {
			return nil
		}
		if f.err != nil {
			s.opts.Logger.Error("ipc stream failed", map[string]any{"error": f.err.Error()})
			return fmt.Errorf("ipc: %w", f.err)
		}

		s.opts.Metrics.IncIPCRequests()
		resp := s.Handle(ctx, f.payload)
		if err := enc.WriteFrame(resp); err != nil {
			return fmt.Errorf("ipc: %w", err)
		}
	}
}

type frameResult struct {
	payload []byte
	err     error
}

// readFrames forwards frames until the first error or until done closes.
func readFrames(dec *FrameDecoder, out chan<- frameResult, done <-chan struct{}) {
	for {
		payload, err := dec.ReadFrame()
		select {
		case out <- frameResult{payload: payload, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Handle decodes one payload and returns its response.
func (s *Server) Handle(ctx context.Context, payload []byte) *Response {
	p, err := peek(payload)
	if err != nil {
		return s.decodeFailure("", err)
	}

	req, err := DecodeRequest(payload)
	if err != nil {
		return s.decodeFailure(p.ID, err)
	}

	switch req := req.(type) {
	case *AggregateRequest:
		return s.aggregate(req)
	case *MatchRequest:
		return s.match(req)
	case *QuotaRequest:
		return s.quota(ctx, req)
	default:
		return s.decodeFailure(p.ID, fmt.Errorf("unhandled request %T", req))
	}
}

func (s *Server) decodeFailure(id string, err error) *Response {
	s.opts.Metrics.IncIPCDecodeErrors()
	s.opts.Logger.Warn("ipc decode failed", map[string]any{"id": id, "error": err.Error()})
	return failure(id, err)
}

func failure(id string, err error) *Response {
	return &Response{Type: TypeResult, ID: id, Error: err.Error()}
}

func (s *Server) aggregate(req *AggregateRequest) *Response {
	if len(req.Stages) > 0 {
		res, err := status.AggregateStages(req.Stages)
		if err != nil {
			s.opts.Metrics.IncAggregationErrors()
			return failure(req.ID, err)
		}
		s.opts.Metrics.RecordAggregation(string(res.Status))
		return &Response{Type: TypeResult, ID: req.ID, OK: true, Status: res.Status, Stages: res.Stages}
	}

	st, err := status.Aggregate(req.Entries)
	if err != nil {
		s.opts.Metrics.IncAggregationErrors()
		return failure(req.ID, err)
	}
	s.opts.Metrics.RecordAggregation(string(st))
	return &Response{Type: TypeResult, ID: req.ID, OK: true, Status: st}
}

func (s *Server) match(req *MatchRequest) *Response {
	records := req.Runners
	if len(records) == 0 {
		records = s.opts.Runners
	}

	matchers, err := matching.Build(matching.FromRelation(records))
	if err != nil {
		s.opts.Metrics.IncMatcherBuildFailures()
		return failure(req.ID, err)
	}
	s.opts.Metrics.RecordBuild(len(records), len(matchers))

	job := req.Job()
	eligible := matching.Eligible(job, matchers)
	s.opts.Metrics.RecordMatch(len(matchers), len(eligible))

	return &Response{
		Type:      TypeResult,
		ID:        req.ID,
		OK:        true,
		RunnerIDs: matching.EligibleRunnerIDs(job, eligible),
	}
}

func (s *Server) quota(ctx context.Context, req *QuotaRequest) *Response {
	limits := s.opts.Limits
	if req.Limits != nil {
		limits = *req.Limits
	}

	d, err := s.opts.Policy.Admit(ctx, admission.Request{
		NamespaceID: req.NamespaceID,
		ProjectID:   req.ProjectID,
		PipelineID:  req.PipelineID,
		Ref:         req.Ref,
		Limiters:    Limiters(limits, req.Counts),
	})

	st := s.opts.Policy.Stats()
	s.opts.Metrics.AbsorbAdmissionStats(st.Checks, st.Admitted, st.Rejected, st.KindCounts())

	if err != nil {
		return failure(req.ID, err)
	}
	return &Response{Type: TypeResult, ID: req.ID, OK: true, Decision: &d}
}

// Limiters builds the three quota limiters from fixed limits and counts.
func Limiters(limits Limits, counts Counts) []*quota.Limiter {
	return []*quota.Limiter{
		quota.NewActivity(limits.ActivePipelines, quota.Static(counts.ActivePipelines)),
		quota.NewJobActivity(limits.ActiveJobs, quota.Static(counts.ActiveJobs)),
		quota.NewSize(limits.PipelineSize, quota.Static(counts.PipelineSize)),
	}
}
