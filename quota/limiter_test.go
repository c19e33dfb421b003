package quota

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestLimiter_Boundary(t *testing.T) {
	tests := []struct {
		name    string
		limit   int64
		current int64
		want    bool
	}{
		{"at limit", 10, 10, false},
		{"one over", 10, 11, true},
		{"under", 10, 3, false},
		{"disabled zero", 0, 100, false},
		{"disabled negative", -5, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, l := range []*Limiter{
				NewActivity(tt.limit, Static(tt.current)),
				NewJobActivity(tt.limit, Static(tt.current)),
				NewSize(tt.limit, Static(tt.current)),
			} {
				got, err := l.Exceeded(t.Context())
				if err != nil {
					t.Fatalf("%s: Exceeded failed: %v", l.Kind(), err)
				}
				if got != tt.want {
					t.Errorf("%s: Exceeded = %v, want %v", l.Kind(), got, tt.want)
				}
			}
		})
	}
}

func TestLimiter_Enabled(t *testing.T) {
	if NewActivity(0, Static(0)).Enabled() {
		t.Error("limit 0 must be disabled")
	}
	if NewActivity(-1, Static(0)).Enabled() {
		t.Error("negative limit must be disabled")
	}
	if !NewActivity(1, Static(0)).Enabled() {
		t.Error("positive limit must be enabled")
	}
}

func TestLimiter_Messages(t *testing.T) {
	tests := []struct {
		limiter *Limiter
		want    string
	}{
		{NewActivity(10, Static(11)), "Active pipelines limit exceeded by 1 pipeline!"},
		{NewActivity(10, Static(13)), "Active pipelines limit exceeded by 3 pipelines!"},
		{NewJobActivity(100, Static(101)), "Active jobs limit exceeded by 1 job in the past 24 hours!"},
		{NewJobActivity(100, Static(150)), "Active jobs limit exceeded by 50 jobs in the past 24 hours!"},
		{NewSize(5, Static(6)), "Pipeline size limit exceeded by 1 job!"},
		{NewSize(5, Static(7)), "Pipeline size limit exceeded by 2 jobs!"},
	}

	for _, tt := range tests {
		got, err := tt.limiter.Message(t.Context())
		if err != nil {
			t.Fatalf("Message failed: %v", err)
		}
		if got != tt.want {
			t.Errorf("Message = %q, want %q", got, tt.want)
		}
	}
}

func TestLimiter_MessageEmptyWhenNotExceeded(t *testing.T) {
	for _, l := range []*Limiter{
		NewActivity(10, Static(10)),
		NewSize(0, Static(1000)),
	} {
		msg, err := l.Message(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		if msg != "" {
			t.Errorf("%s: expected empty message, got %q", l.Kind(), msg)
		}
	}
}

func TestLimiter_Evaluate(t *testing.T) {
	v, err := NewJobActivity(20, Static(23)).Evaluate(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	want := Verdict{
		Kind:     KindJobActivity,
		Enabled:  true,
		Limit:    20,
		Current:  23,
		Excess:   3,
		Exceeded: true,
		Message:  "Active jobs limit exceeded by 3 jobs in the past 24 hours!",
	}
	if v != want {
		t.Errorf("Evaluate = %+v, want %+v", v, want)
	}
}

func TestLimiter_ReadsThroughEveryCall(t *testing.T) {
	var calls atomic.Int64
	counter := CounterFunc(func(context.Context) (int64, error) {
		return 9 + calls.Add(1), nil
	})
	l := NewActivity(10, counter)

	first, _ := l.Exceeded(t.Context())
	second, _ := l.Exceeded(t.Context())

	if first {
		t.Error("first evaluation (count 10) must not exceed")
	}
	if !second {
		t.Error("second evaluation (count 11) must exceed")
	}
	if calls.Load() != 2 {
		t.Errorf("counter called %d times, want 2", calls.Load())
	}
}

func TestLimiter_DisabledSkipsCounter(t *testing.T) {
	called := false
	l := NewSize(0, CounterFunc(func(context.Context) (int64, error) {
		called = true
		return 1 << 40, nil
	}))

	exceeded, err := l.Exceeded(t.Context())
	if err != nil || exceeded {
		t.Errorf("Exceeded = %v, %v", exceeded, err)
	}
	if called {
		t.Error("disabled limiter must not read the count")
	}
}

func TestLimiter_CounterError(t *testing.T) {
	boom := errors.New("db timeout")
	l := NewActivity(1, CounterFunc(func(context.Context) (int64, error) { return 0, boom }))

	if _, err := l.Exceeded(t.Context()); !errors.Is(err, boom) {
		t.Errorf("expected wrapped counter error, got %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("ci_unknown", 1, Static(0)); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := New(KindSize, 1, nil); !errors.Is(err, ErrNoCounter) {
		t.Errorf("expected ErrNoCounter, got %v", err)
	}
	l, err := New(KindSize, 1, Static(2))
	if err != nil {
		t.Fatal(err)
	}
	if l.Kind() != KindSize || l.Limit() != 1 {
		t.Errorf("unexpected limiter %+v", l)
	}
}

func TestLimiter_NilCounter(t *testing.T) {
	for _, l := range []*Limiter{NewActivity(5, nil), NewJobActivity(5, nil), NewSize(5, nil)} {
		if _, err := l.Evaluate(t.Context()); !errors.Is(err, ErrNoCounter) {
			t.Errorf("%s: expected ErrNoCounter, got %v", l.Kind(), err)
		}
	}

	// Disabled limiters never read the counter
	if v, err := NewSize(0, nil).Evaluate(t.Context()); err != nil || v.Enabled {
		t.Errorf("disabled limiter: %+v, %v", v, err)
	}
}
