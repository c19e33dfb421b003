// Package matching decides which runners can execute a job.
//
// Runners are collapsed into RunnerMatchers, one per distinct capability
// shape, so a job is matched once per shape instead of once per runner.
package matching

import (
	"github.com/pithecene-io/cicore/types"
)

// RunnerMatcher is one capability shape together with the runners sharing it.
// Immutable after Build returns it.
type RunnerMatcher struct {
	// RunnerIDs lists every runner collapsed into this shape, in input order.
	RunnerIDs  []int64                `json:"runner_ids" yaml:"runner_ids" msgpack:"runner_ids"`
	Capability types.RunnerCapability `json:"capability" yaml:"capability" msgpack:"capability"`
}

// Key returns the capability tuple key shared by all runners of the matcher.
func (m RunnerMatcher) Key() string {
	return m.Capability.Key()
}

// IsInstanceType reports whether the runners are instance-wide runners.
func (m RunnerMatcher) IsInstanceType() bool {
	return m.Capability.RunnerType == types.RunnerTypeInstance
}

// Matches reports whether runners of this shape can execute a job with
// requirement req.
//
// Rules, in order:
//  1. a protected job only runs on ref_protected runners
//  2. an untagged job only runs on runners accepting untagged jobs
//  3. a tagged job needs every one of its tags on the runner; extra runner
//     tags are fine
//  4. once the namespace is out of compute minutes, instance runners that
//     charge for the project's visibility no longer match
func (m RunnerMatcher) Matches(req types.JobRequirement) bool {
	c := m.Capability

	if req.Protected && c.AccessLevel != types.AccessLevelRefProtected {
		return false
	}

	if len(req.Tags) == 0 {
		if !c.RunUntagged {
			return false
		}
	} else if !req.Tags.SubsetOf(c.Tags) {
		return false
	}

	return m.matchesQuota(req)
}

func (m RunnerMatcher) matchesQuota(req types.JobRequirement) bool {
	if !req.MinutesExhausted || !m.IsInstanceType() {
		return true
	}
	return m.costFactor(req.PublicProject) == 0
}

func (m RunnerMatcher) costFactor(public bool) float64 {
	if public {
		return m.Capability.PublicCostFactor
	}
	return m.Capability.PrivateCostFactor
}
