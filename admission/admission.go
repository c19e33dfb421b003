// Package admission decides whether a pipeline may be created given the
// namespace's CI quota limits.
//
// Three policies are available:
//   - strict: any exceeded limit rejects the pipeline
//   - advisory: exceeded limits are logged but the pipeline is admitted
//   - noop: every pipeline is admitted without reading counts
//
// Counter failures are returned as errors and never turn into a decision.
package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pithecene-io/cicore/adapter"
	"github.com/pithecene-io/cicore/log"
	"github.com/pithecene-io/cicore/quota"
)

// Policy names accepted by New.
const (
	PolicyStrict   = "strict"
	PolicyAdvisory = "advisory"
	PolicyNoop     = "noop"
)

// ErrUnknownPolicy is returned by New for an unrecognized policy name.
var ErrUnknownPolicy = errors.New("unknown admission policy")

// Policy admits or rejects pipelines.
type Policy interface {
	// Name returns the policy name ("strict", "advisory", "noop").
	Name() string

	// Admit evaluates the request's limiters and returns the decision.
	// Returns an error when a counter cannot be read.
	Admit(ctx context.Context, req Request) (Decision, error)

	// Stats returns a consistent snapshot of the policy counters.
	Stats() Stats

	// Close releases the publisher, if any.
	Close() error
}

// Request describes one pipeline creation attempt.
type Request struct {
	NamespaceID int64
	ProjectID   int64
	PipelineID  int64
	Ref         string
	Limiters    []*quota.Limiter
}

// Decision is the outcome of Admit.
type Decision struct {
	Admitted   bool            `json:"admitted" yaml:"admitted" msgpack:"admitted"`
	Violations []quota.Verdict `json:"violations,omitempty" yaml:"violations,omitempty" msgpack:"violations,omitempty"`
}

// Reason joins the violation messages, or returns "" when nothing was
// exceeded.
func (d Decision) Reason() string {
	msgs := make([]string, 0, len(d.Violations))
	for _, v := range d.Violations {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, " ")
}

// Options configures a policy.
type Options struct {
	// Logger receives admission logs. Nil discards them.
	Logger *log.Logger
	// Publisher receives rejection events. Nil disables publishing.
	Publisher adapter.Adapter
	// Now overrides the event clock in tests.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// New returns the policy registered under name. An empty name selects
// the strict policy.
func New(name string, opts Options) (Policy, error) {
	switch name {
	case "", PolicyStrict:
		return NewStrictPolicy(opts), nil
	case PolicyAdvisory:
		return NewAdvisoryPolicy(opts), nil
	case PolicyNoop:
		return NewNoopPolicy(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Stats holds admission counters.
type Stats struct {
	// Checks is the number of Admit calls.
	Checks int64
	// Admitted is the number of admitted pipelines.
	Admitted int64
	// Rejected is the number of rejected pipelines.
	Rejected int64
	// Errors counts Admit calls that failed on a counter.
	Errors int64
	// PublishErrors counts rejection events that could not be delivered.
	PublishErrors int64
	// ExceededByKind counts exceeded limits per quota kind.
	ExceededByKind map[quota.Kind]int64
}

// KindCounts returns ExceededByKind keyed by plain strings.
func (s Stats) KindCounts() map[string]int64 {
	out := make(map[string]int64, len(s.ExceededByKind))
	for k, v := range s.ExceededByKind {
		out[string(k)] = v
	}
	return out
}

// statsRecorder is the mutex-guarded counter set shared by the policies.
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{
		stats: Stats{ExceededByKind: make(map[quota.Kind]int64)},
	}
}

func (r *statsRecorder) record(d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Checks++
	if d.Admitted {
		r.stats.Admitted++
	} else {
		r.stats.Rejected++
	}
	for _, v := range d.Violations {
		r.stats.ExceededByKind[v.Kind]++
	}
}

func (r *statsRecorder) incErrors() {
	r.mu.Lock()
	r.stats.Checks++
	r.stats.Errors++
	r.mu.Unlock()
}

func (r *statsRecorder) incPublishErrors() {
	r.mu.Lock()
	r.stats.PublishErrors++
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.stats
	s.ExceededByKind = make(map[quota.Kind]int64, len(r.stats.ExceededByKind))
	for k, v := range r.stats.ExceededByKind {
		s.ExceededByKind[k] = v
	}
	return s
}

// violations evaluates every limiter in order and returns the exceeded
// verdicts. The first counter error aborts evaluation.
func violations(ctx context.Context, limiters []*quota.Limiter) ([]quota.Verdict, error) {
	var out []quota.Verdict
	for _, l := range limiters {
		if l == nil {
			continue
		}
		v, err := l.Evaluate(ctx)
		if err != nil {
			return nil, err
		}
		if v.Exceeded {
			out = append(out, v)
		}
	}
	return out, nil
}

func requestFields(req Request, d Decision) map[string]any {
	fields := map[string]any{
		"namespace_id": req.NamespaceID,
		"project_id":   req.ProjectID,
	}
	if req.PipelineID != 0 {
		fields["pipeline_id"] = req.PipelineID
	}
	if req.Ref != "" {
		fields["ref"] = req.Ref
	}
	if len(d.Violations) > 0 {
		kinds := make([]string, 0, len(d.Violations))
		for _, v := range d.Violations {
			kinds = append(kinds, string(v.Kind))
		}
		fields["exceeded"] = kinds
		fields["reason"] = d.Reason()
	}
	return fields
}

var (
	_ Policy = (*StrictPolicy)(nil)
	_ Policy = (*AdvisoryPolicy)(nil)
	_ Policy = (*NoopPolicy)(nil)
)
