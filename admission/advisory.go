package admission

import "context"

// AdvisoryPolicy admits every pipeline. Exceeded limits are logged and
// returned in the decision, never enforced.
type AdvisoryPolicy struct {
	opts  Options
	stats *statsRecorder
}

// NewAdvisoryPolicy creates an advisory policy. Options.Publisher is
// ignored because nothing is ever rejected.
func NewAdvisoryPolicy(opts Options) *AdvisoryPolicy {
	return &AdvisoryPolicy{
		opts:  opts.withDefaults(),
		stats: newStatsRecorder(),
	}
}

// Name returns "advisory".
func (p *AdvisoryPolicy) Name() string { return PolicyAdvisory }

// Admit evaluates every limiter and admits regardless of the outcome.
func (p *AdvisoryPolicy) Admit(ctx context.Context, req Request) (Decision, error) {
	vs, err := violations(ctx, req.Limiters)
	if err != nil {
		p.stats.incErrors()
		return Decision{}, err
	}

	d := Decision{Admitted: true, Violations: vs}
	p.stats.record(d)

	if len(vs) > 0 {
		p.opts.Logger.Warn("quota exceeded, pipeline admitted", requestFields(req, d))
	}
	return d, nil
}

// Stats returns policy statistics.
func (p *AdvisoryPolicy) Stats() Stats {
	return p.stats.snapshot()
}

// Close is a no-op.
func (p *AdvisoryPolicy) Close() error {
	return nil
}
