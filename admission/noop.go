package admission

import "context"

// NoopPolicy admits every pipeline without reading any count.
type NoopPolicy struct {
	stats *statsRecorder
}

// NewNoopPolicy creates a no-op policy.
func NewNoopPolicy() *NoopPolicy {
	return &NoopPolicy{stats: newStatsRecorder()}
}

// Name returns "noop".
func (p *NoopPolicy) Name() string { return PolicyNoop }

// Admit always admits.
func (p *NoopPolicy) Admit(_ context.Context, _ Request) (Decision, error) {
	d := Decision{Admitted: true}
	p.stats.record(d)
	return d, nil
}

// Stats returns policy statistics.
func (p *NoopPolicy) Stats() Stats {
	return p.stats.snapshot()
}

// Close is a no-op.
func (p *NoopPolicy) Close() error {
	return nil
}
