// Package metrics provides in-process counters for the engine.
//
// The Collector is a leaf package with no internal dependencies. Admission
// counters are absorbed from admission.Stats rather than recorded live,
// avoiding double-counting.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Status aggregation
	Aggregations      int64 `json:"aggregations"`
	AggregationErrors int64 `json:"aggregation_errors"`
	// AggregatedByStatus counts results per resulting status.
	AggregatedByStatus map[string]int64 `json:"aggregated_by_status"`

	// Runner matching
	MatchersBuilt     int64 `json:"matchers_built"`
	RunnersCollapsed  int64 `json:"runners_collapsed"`
	MatchEvaluations  int64 `json:"match_evaluations"`
	MatchesFound      int64 `json:"matches_found"`
	MatcherBuildFails int64 `json:"matcher_build_failures"`

	// Quota / admission (absorbed from admission.Stats)
	QuotaChecks       int64            `json:"quota_checks"`
	PipelinesAdmitted int64            `json:"pipelines_admitted"`
	PipelinesRejected int64            `json:"pipelines_rejected"`
	ExceededByKind    map[string]int64 `json:"exceeded_by_kind"`

	// IPC
	IPCRequests     int64 `json:"ipc_requests"`
	IPCDecodeErrors int64 `json:"ipc_decode_errors"`

	// Dimensions (informational, set at construction)
	Policy  string `json:"policy"`
	Surface string `json:"surface"`
}

// Collector accumulates counters.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	aggregations       int64
	aggregationErrors  int64
	aggregatedByStatus map[string]int64

	matchersBuilt     int64
	runnersCollapsed  int64
	matchEvaluations  int64
	matchesFound      int64
	matcherBuildFails int64

	quotaChecks       int64
	pipelinesAdmitted int64
	pipelinesRejected int64
	exceededByKind    map[string]int64

	ipcRequests     int64
	ipcDecodeErrors int64

	policy  string
	surface string
}

// NewCollector creates a Collector with dimension labels.
// policy is the admission policy name, surface the entrypoint ("cli", "ipc").
func NewCollector(policy, surface string) *Collector {
	return &Collector{
		aggregatedByStatus: make(map[string]int64),
		exceededByKind:     make(map[string]int64),
		policy:             policy,
		surface:            surface,
	}
}

// --- Status aggregation ---

// RecordAggregation records one aggregation and its resulting status.
func (c *Collector) RecordAggregation(status string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.aggregations++
	c.aggregatedByStatus[status]++
	c.mu.Unlock()
}

// IncAggregationErrors records an aggregation that failed.
func (c *Collector) IncAggregationErrors() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.aggregationErrors++
	c.mu.Unlock()
}

// --- Runner matching ---

// RecordBuild records a matcher build that produced matchers from runners.
func (c *Collector) RecordBuild(runners, matchers int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.matchersBuilt += int64(matchers)
	if runners > matchers {
		c.runnersCollapsed += int64(runners - matchers)
	}
	c.mu.Unlock()
}

// IncMatcherBuildFailures records a matcher build rejected by validation.
func (c *Collector) IncMatcherBuildFailures() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.matcherBuildFails++
	c.mu.Unlock()
}

// RecordMatch records evaluated matchers and how many of them matched.
func (c *Collector) RecordMatch(evaluated, matched int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.matchEvaluations += int64(evaluated)
	c.matchesFound += int64(matched)
	c.mu.Unlock()
}

// --- Admission (absorbed from admission.Stats) ---

// AbsorbAdmissionStats copies admission counters into the collector.
// The map keys are string-typed quota kinds to keep this package free of
// dependencies on the quota package.
func (c *Collector) AbsorbAdmissionStats(checks, admitted, rejected int64, exceededByKind map[string]int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.quotaChecks = checks
	c.pipelinesAdmitted = admitted
	c.pipelinesRejected = rejected
	c.exceededByKind = make(map[string]int64, len(exceededByKind))
	for k, v := range exceededByKind {
		c.exceededByKind[k] = v
	}
	c.mu.Unlock()
}

// --- IPC ---

// IncIPCRequests records a request frame handled by the IPC server.
func (c *Collector) IncIPCRequests() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.ipcRequests++
	c.mu.Unlock()
}

// IncIPCDecodeErrors records a frame that could not be decoded.
func (c *Collector) IncIPCDecodeErrors() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.ipcDecodeErrors++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Aggregations:       c.aggregations,
		AggregationErrors:  c.aggregationErrors,
		AggregatedByStatus: copyMap(c.aggregatedByStatus),
		MatchersBuilt:      c.matchersBuilt,
		RunnersCollapsed:   c.runnersCollapsed,
		MatchEvaluations:   c.matchEvaluations,
		MatchesFound:       c.matchesFound,
		MatcherBuildFails:  c.matcherBuildFails,
		QuotaChecks:        c.quotaChecks,
		PipelinesAdmitted:  c.pipelinesAdmitted,
		PipelinesRejected:  c.pipelinesRejected,
		ExceededByKind:     copyMap(c.exceededByKind),
		IPCRequests:        c.ipcRequests,
		IPCDecodeErrors:    c.ipcDecodeErrors,
		Policy:             c.policy,
		Surface:            c.surface,
	}
	return s
}

func copyMap(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
