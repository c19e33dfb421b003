package matching

import (
	"testing"

	"github.com/pithecene-io/cicore/types"
)

func matcher(c types.RunnerCapability) RunnerMatcher {
	return RunnerMatcher{RunnerIDs: []int64{1}, Capability: c}
}

func TestMatches_TagSubset(t *testing.T) {
	m := matcher(types.RunnerCapability{
		RunnerType:  types.RunnerTypeProject,
		AccessLevel: types.AccessLevelNotProtected,
		Tags:        types.NewTagSet("a", "b", "c"),
	})

	if !m.Matches(types.JobRequirement{Tags: types.NewTagSet("a", "b")}) {
		t.Error("expected {a,b} to match runner {a,b,c}")
	}
	if m.Matches(types.JobRequirement{Tags: types.NewTagSet("a", "d")}) {
		t.Error("expected {a,d} not to match runner {a,b,c}")
	}
}

func TestMatches_UnsortedTags(t *testing.T) {
	// Capabilities decoded from input may carry tags in any order
	m := matcher(types.RunnerCapability{
		RunnerType:  types.RunnerTypeProject,
		AccessLevel: types.AccessLevelNotProtected,
		Tags:        types.TagSet{"c", "b", "a"},
	})

	if !m.Matches(types.JobRequirement{Tags: types.TagSet{"b", "a"}}) {
		t.Error("expected {b,a} to match runner {c,b,a}")
	}
	if m.Matches(types.JobRequirement{Tags: types.TagSet{"a", "z"}}) {
		t.Error("expected {a,z} not to match runner {c,b,a}")
	}
}

func TestMatches_UntaggedPolicy(t *testing.T) {
	untaggedJob := types.JobRequirement{}

	tests := []struct {
		name        string
		runUntagged bool
		tags        types.TagSet
		want        bool
	}{
		{"runner refuses untagged", false, nil, false},
		{"tagged runner refuses untagged", false, types.NewTagSet("docker"), false},
		{"runner accepts untagged", true, nil, true},
		{"tagged runner accepts untagged", true, types.NewTagSet("docker"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := matcher(types.RunnerCapability{
				RunnerType:  types.RunnerTypeGroup,
				AccessLevel: types.AccessLevelNotProtected,
				RunUntagged: tt.runUntagged,
				Tags:        tt.tags,
			})
			if got := m.Matches(untaggedJob); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatches_ProtectionGate(t *testing.T) {
	caps := []types.RunnerCapability{
		{RunnerType: types.RunnerTypeProject, AccessLevel: types.AccessLevelNotProtected, RunUntagged: true, Tags: types.NewTagSet("a")},
		{RunnerType: types.RunnerTypeProject, AccessLevel: types.AccessLevelRefProtected, RunUntagged: true, Tags: types.NewTagSet("a")},
	}
	reqs := []types.JobRequirement{
		{Protected: true},
		{Protected: true, Tags: types.NewTagSet("a")},
	}

	for _, req := range reqs {
		for _, c := range caps {
			want := c.AccessLevel == types.AccessLevelRefProtected
			if got := matcher(c).Matches(req); got != want {
				t.Errorf("req %+v on %s: Matches = %v, want %v", req, c.AccessLevel, got, want)
			}
		}
	}

	// Protection passes but tags do not
	protected := matcher(caps[1])
	if protected.Matches(types.JobRequirement{Protected: true, Tags: types.NewTagSet("z")}) {
		t.Error("protected runner must still enforce tags")
	}
}

func TestMatches_UnprotectedJobOnProtectedRunner(t *testing.T) {
	m := matcher(types.RunnerCapability{
		RunnerType:  types.RunnerTypeProject,
		AccessLevel: types.AccessLevelRefProtected,
		RunUntagged: true,
	})
	if !m.Matches(types.JobRequirement{}) {
		t.Error("ref_protected runners also accept jobs for unprotected refs")
	}
}

func TestMatches_MinutesExhausted(t *testing.T) {
	paid := types.RunnerCapability{
		RunnerType:        types.RunnerTypeInstance,
		PublicCostFactor:  0,
		PrivateCostFactor: 1,
		RunUntagged:       true,
		AccessLevel:       types.AccessLevelNotProtected,
	}

	tests := []struct {
		name       string
		capability types.RunnerCapability
		req        types.JobRequirement
		want       bool
	}{
		{"quota available", paid, types.JobRequirement{}, true},
		{"private project out of minutes", paid, types.JobRequirement{MinutesExhausted: true}, false},
		{"public project is free", paid, types.JobRequirement{MinutesExhausted: true, PublicProject: true}, true},
		{
			name: "group runners never consume minutes",
			capability: types.RunnerCapability{
				RunnerType:        types.RunnerTypeGroup,
				PrivateCostFactor: 1,
				RunUntagged:       true,
				AccessLevel:       types.AccessLevelNotProtected,
			},
			req:  types.JobRequirement{MinutesExhausted: true},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matcher(tt.capability).Matches(tt.req); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}
