package admission

import (
	"context"
)

// StrictPolicy rejects a pipeline when any limit is exceeded.
//
// Rejections are logged at warn level and published to the configured
// adapter. A failed publish is logged and counted but does not change the
// decision.
type StrictPolicy struct {
	opts  Options
	stats *statsRecorder
}

// NewStrictPolicy creates a strict policy.
func NewStrictPolicy(opts Options) *StrictPolicy {
	return &StrictPolicy{
		opts:  opts.withDefaults(),
		stats: newStatsRecorder(),
	}
}

// Name returns "strict".
func (p *StrictPolicy) Name() string { return PolicyStrict }

// Admit evaluates every limiter and rejects on the first violation set.
func (p *StrictPolicy) Admit(ctx context.Context, req Request) (Decision, error) {
	vs, err := violations(ctx, req.Limiters)
	if err != nil {
		p.stats.incErrors()
		return Decision{}, err
	}

	d := Decision{Admitted: len(vs) == 0, Violations: vs}
	p.stats.record(d)

	if d.Admitted {
		p.opts.Logger.Debug("pipeline admitted", requestFields(req, d))
		return d, nil
	}

	p.opts.Logger.Warn("pipeline rejected", requestFields(req, d))
	p.publish(ctx, req, d)
	return d, nil
}

func (p *StrictPolicy) publish(ctx context.Context, req Request, d Decision) {
	if p.opts.Publisher == nil {
		return
	}
	event := RejectionEvent(p.Name(), req, d, p.opts.Now())
	if err := p.opts.Publisher.Publish(ctx, event); err != nil {
		p.stats.incPublishErrors()
		fields := requestFields(req, d)
		fields["error"] = err.Error()
		p.opts.Logger.Error("failed to publish rejection", fields)
	}
}

// Stats returns policy statistics.
func (p *StrictPolicy) Stats() Stats {
	return p.stats.snapshot()
}

// Close closes the publisher.
func (p *StrictPolicy) Close() error {
	if p.opts.Publisher == nil {
		return nil
	}
	return p.opts.Publisher.Close()
}
