// Package quota implements point-in-time admission limits for pipelines
// and jobs.
//
// A Limiter compares a live count against a configured limit. Limiters are
// advisory: they never fail because a limit is exceeded, the caller decides
// whether an exceeded limit rejects work or is only logged.
package quota

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoCounter is returned when an enabled limiter has no counter to read.
var ErrNoCounter = errors.New("quota limiter requires a counter")

// Kind identifies which limit a Limiter enforces.
type Kind string

const (
	// KindActivity limits alive pipelines in a namespace.
	KindActivity Kind = "ci_active_pipelines"
	// KindJobActivity limits jobs of alive pipelines created in the last 24h.
	KindJobActivity Kind = "ci_active_jobs"
	// KindSize limits the number of jobs seeded into one pipeline.
	KindSize Kind = "ci_pipeline_size"
)

// Kinds returns all limit kinds in evaluation order.
func Kinds() []Kind {
	return []Kind{KindActivity, KindJobActivity, KindSize}
}

// Counter supplies the live count a limit is compared against.
// Count is called on every evaluation; implementations must not cache
// across calls.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(ctx context.Context) (int64, error)

// Count calls f.
func (f CounterFunc) Count(ctx context.Context) (int64, error) {
	return f(ctx)
}

// Static is a Counter with a fixed value, for counts already known
// to the caller (e.g. the seeded jobs of an in-memory pipeline).
type Static int64

// Count returns s.
func (s Static) Count(context.Context) (int64, error) {
	return int64(s), nil
}

// Limiter checks one kind of limit.
// Safe for concurrent use when its Counter is.
type Limiter struct {
	kind    Kind
	limit   int64
	counter Counter
}

// New creates a limiter of the given kind.
func New(kind Kind, limit int64, counter Counter) (*Limiter, error) {
	switch kind {
	case KindActivity, KindJobActivity, KindSize:
	default:
		return nil, fmt.Errorf("unknown quota kind %q", kind)
	}
	if counter == nil {
		return nil, ErrNoCounter
	}
	return &Limiter{kind: kind, limit: limit, counter: counter}, nil
}

// NewActivity limits alive pipelines in a namespace. An enabled limiter
// built with a nil counter fails every evaluation with ErrNoCounter.
func NewActivity(limit int64, alivePipelines Counter) *Limiter {
	return &Limiter{kind: KindActivity, limit: limit, counter: alivePipelines}
}

// NewJobActivity limits jobs in alive pipelines created in the past 24 hours.
func NewJobActivity(limit int64, activeJobs Counter) *Limiter {
	return &Limiter{kind: KindJobActivity, limit: limit, counter: activeJobs}
}

// NewSize limits the number of jobs seeded into one pipeline.
func NewSize(limit int64, seeds Counter) *Limiter {
	return &Limiter{kind: KindSize, limit: limit, counter: seeds}
}

// Kind returns the limiter kind.
func (l *Limiter) Kind() Kind { return l.kind }

// Limit returns the configured limit.
func (l *Limiter) Limit() int64 { return l.limit }

// Enabled reports whether the limit is enforced. Zero and negative limits
// mean no limit.
func (l *Limiter) Enabled() bool {
	return l.limit > 0
}

// Verdict is the outcome of one evaluation.
type Verdict struct {
	Kind     Kind   `json:"kind" yaml:"kind" msgpack:"kind"`
	Enabled  bool   `json:"enabled" yaml:"enabled" msgpack:"enabled"`
	Limit    int64  `json:"limit" yaml:"limit" msgpack:"limit"`
	Current  int64  `json:"current" yaml:"current" msgpack:"current"`
	Excess   int64  `json:"excess" yaml:"excess" msgpack:"excess"`
	Exceeded bool   `json:"exceeded" yaml:"exceeded" msgpack:"exceeded"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty" msgpack:"message,omitempty"`
}

// Evaluate reads the live count and compares it to the limit.
// A disabled limiter does not read the count.
func (l *Limiter) Evaluate(ctx context.Context) (Verdict, error) {
	v := Verdict{Kind: l.kind, Enabled: l.Enabled(), Limit: l.limit}
	if !v.Enabled {
		return v, nil
	}

	if l.counter == nil {
		return Verdict{}, fmt.Errorf("%s: %w", l.kind, ErrNoCounter)
	}
	current, err := l.counter.Count(ctx)
	if err != nil {
		return Verdict{}, fmt.Errorf("%s: count: %w", l.kind, err)
	}
	v.Current = current

	if current > l.limit {
		v.Exceeded = true
		v.Excess = current - l.limit
		v.Message = message(l.kind, v.Excess)
	}
	return v, nil
}

// Exceeded reports whether the live count is strictly above the limit.
func (l *Limiter) Exceeded(ctx context.Context) (bool, error) {
	v, err := l.Evaluate(ctx)
	if err != nil {
		return false, err
	}
	return v.Exceeded, nil
}

// Message returns the user-facing overage message, or "" when the limit
// is not exceeded.
func (l *Limiter) Message(ctx context.Context) (string, error) {
	v, err := l.Evaluate(ctx)
	if err != nil {
		return "", err
	}
	return v.Message, nil
}

func message(kind Kind, excess int64) string {
	switch kind {
	case KindActivity:
		return fmt.Sprintf("Active pipelines limit exceeded by %s!", pluralize(excess, "pipeline"))
	case KindJobActivity:
		return fmt.Sprintf("Active jobs limit exceeded by %s in the past 24 hours!", pluralize(excess, "job"))
	case KindSize:
		return fmt.Sprintf("Pipeline size limit exceeded by %s!", pluralize(excess, "job"))
	default:
		return fmt.Sprintf("%s limit exceeded by %d!", kind, excess)
	}
}

func pluralize(n int64, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
