package matching

import (
	"slices"

	"github.com/pithecene-io/cicore/types"
)

// Eligible returns the matchers that can execute a job with requirement req,
// preserving input order.
func Eligible(req types.JobRequirement, matchers []RunnerMatcher) []RunnerMatcher {
	var out []RunnerMatcher
	for _, m := range matchers {
		if m.Matches(req) {
			out = append(out, m)
		}
	}
	return out
}

// EligibleRunnerIDs returns the sorted IDs of all runners able to execute
// a job with requirement req.
func EligibleRunnerIDs(req types.JobRequirement, matchers []RunnerMatcher) []int64 {
	var ids []int64
	for _, m := range Eligible(req, matchers) {
		ids = append(ids, m.RunnerIDs...)
	}
	slices.Sort(ids)
	return ids
}

// Resolve builds matchers from src and filters them for req.
func Resolve(req types.JobRequirement, src Source) ([]RunnerMatcher, error) {
	matchers, err := Build(src)
	if err != nil {
		return nil, err
	}
	return Eligible(req, matchers), nil
}
