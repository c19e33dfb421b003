package admission_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pithecene-io/cicore/adapter"
	"github.com/pithecene-io/cicore/quota"
)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*adapter.PipelineRejectedEvent
	err    error
	closed bool
}

func (p *recordingPublisher) Publish(_ context.Context, event *adapter.PipelineRejectedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func (p *recordingPublisher) published() []*adapter.PipelineRejectedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*adapter.PipelineRejectedEvent(nil), p.events...)
}

var testTime = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

var errCounterDown = errors.New("counter unavailable")

// countingCounter records how often it was read.
type countingCounter struct {
	value int64
	err   error
	calls int
}

func (c *countingCounter) Count(context.Context) (int64, error) {
	c.calls++
	return c.value, c.err
}

func limiters(t *testing.T, pipelines, pipelinesLimit, size, sizeLimit int64) []*quota.Limiter {
	t.Helper()
	return []*quota.Limiter{
		quota.NewActivity(pipelinesLimit, quota.Static(pipelines)),
		quota.NewSize(sizeLimit, quota.Static(size)),
	}
}
