package types

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// RunnerType is the scope a runner is registered at.
type RunnerType string

const (
	RunnerTypeInstance RunnerType = "instance_type"
	RunnerTypeGroup    RunnerType = "group_type"
	RunnerTypeProject  RunnerType = "project_type"
)

// AccessLevel controls whether a runner picks up jobs for protected refs.
type AccessLevel string

const (
	AccessLevelNotProtected AccessLevel = "not_protected"
	AccessLevelRefProtected AccessLevel = "ref_protected"
)

// ParseRunnerType accepts both the long form ("instance_type") and the
// short form ("instance").
func ParseRunnerType(s string) (RunnerType, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "_type") {
	case "instance", "shared":
		return RunnerTypeInstance, nil
	case "group":
		return RunnerTypeGroup, nil
	case "project":
		return RunnerTypeProject, nil
	default:
		return "", fmt.Errorf("invalid runner type %q: must be instance, group, or project", s)
	}
}

// ParseAccessLevel converts s into an AccessLevel. Empty means not_protected.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch AccessLevel(strings.ToLower(strings.TrimSpace(s))) {
	case "", AccessLevelNotProtected:
		return AccessLevelNotProtected, nil
	case AccessLevelRefProtected:
		return AccessLevelRefProtected, nil
	default:
		return "", fmt.Errorf("invalid access level %q: must be not_protected or ref_protected", s)
	}
}

// TagSet is a set of runner or job tags. NewTagSet returns it trimmed,
// without empty or duplicate entries and sorted; membership does not
// depend on that order.
type TagSet []string

// NewTagSet normalizes tags into a TagSet.
func NewTagSet(tags ...string) TagSet {
	seen := make(map[string]struct{}, len(tags))
	out := make(TagSet, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether tag is in the set.
func (s TagSet) Contains(tag string) bool {
	return slices.Contains(s, tag)
}

// SubsetOf reports whether every tag of s is present in other.
func (s TagSet) SubsetOf(other TagSet) bool {
	for _, t := range s {
		if !other.Contains(t) {
			return false
		}
	}
	return true
}

// RunnerCapability is one distinct runner shape. Two capabilities with
// equal fields always produce identical match results.
type RunnerCapability struct {
	RunnerType        RunnerType  `json:"runner_type" yaml:"runner_type" msgpack:"runner_type"`
	PublicCostFactor  float64     `json:"public_cost_factor" yaml:"public_cost_factor" msgpack:"public_cost_factor"`
	PrivateCostFactor float64     `json:"private_cost_factor" yaml:"private_cost_factor" msgpack:"private_cost_factor"`
	RunUntagged       bool        `json:"run_untagged" yaml:"run_untagged" msgpack:"run_untagged"`
	AccessLevel       AccessLevel `json:"access_level" yaml:"access_level" msgpack:"access_level"`
	Tags              TagSet      `json:"tags" yaml:"tags" msgpack:"tags"`
}

// Key returns the canonical encoding of the attribute tuple.
// Equal capabilities have equal keys.
func (c RunnerCapability) Key() string {
	var b strings.Builder
	b.WriteString(string(c.RunnerType))
	b.WriteByte('|')
	b.WriteString(formatCost(c.PublicCostFactor))
	b.WriteByte('|')
	b.WriteString(formatCost(c.PrivateCostFactor))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(c.RunUntagged))
	b.WriteByte('|')
	b.WriteString(string(c.AccessLevel))
	b.WriteByte('|')
	b.WriteString(strings.Join(NewTagSet(c.Tags...), "\x00"))
	return b.String()
}

// formatCost encodes a cost factor with -0 folded into 0.
func formatCost(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// JobRequirement describes what a job needs from a runner.
type JobRequirement struct {
	Tags      TagSet `json:"tags" yaml:"tags" msgpack:"tags"`
	Protected bool   `json:"protected" yaml:"protected" msgpack:"protected"`
	// PublicProject selects which cost factor applies to the job.
	PublicProject bool `json:"public_project,omitempty" yaml:"public_project,omitempty" msgpack:"public_project,omitempty"`
	// MinutesExhausted is set when the namespace used up its compute minutes.
	MinutesExhausted bool `json:"minutes_exhausted,omitempty" yaml:"minutes_exhausted,omitempty" msgpack:"minutes_exhausted,omitempty"`
}

// ErrInvalidRunner is the sentinel matched by InvalidRunnerError.
var ErrInvalidRunner = errors.New("invalid runner record")

// InvalidRunnerError reports a runner record that cannot be mapped to a capability.
type InvalidRunnerError struct {
	ID     int64
	Reason string
}

func (e *InvalidRunnerError) Error() string {
	return fmt.Sprintf("runner %d: %s", e.ID, e.Reason)
}

// Is reports whether target is ErrInvalidRunner.
func (e *InvalidRunnerError) Is(target error) bool {
	return target == ErrInvalidRunner
}

// RunnerRecord is a runner as handed over by the runner registry.
type RunnerRecord struct {
	ID                int64    `json:"id" yaml:"id" msgpack:"id"`
	RunnerType        string   `json:"runner_type" yaml:"runner_type" msgpack:"runner_type"`
	PublicCostFactor  float64  `json:"public_projects_minutes_cost_factor" yaml:"public_projects_minutes_cost_factor" msgpack:"public_projects_minutes_cost_factor"`
	PrivateCostFactor float64  `json:"private_projects_minutes_cost_factor" yaml:"private_projects_minutes_cost_factor" msgpack:"private_projects_minutes_cost_factor"`
	RunUntagged       bool     `json:"run_untagged" yaml:"run_untagged" msgpack:"run_untagged"`
	AccessLevel       string   `json:"access_level" yaml:"access_level" msgpack:"access_level"`
	TagList           []string `json:"tag_list" yaml:"tag_list" msgpack:"tag_list"`
}

// Capability maps the record onto its RunnerCapability.
func (r RunnerRecord) Capability() (RunnerCapability, error) {
	rt, err := ParseRunnerType(r.RunnerType)
	if err != nil {
		return RunnerCapability{}, &InvalidRunnerError{ID: r.ID, Reason: err.Error()}
	}
	al, err := ParseAccessLevel(r.AccessLevel)
	if err != nil {
		return RunnerCapability{}, &InvalidRunnerError{ID: r.ID, Reason: err.Error()}
	}
	if !(r.PublicCostFactor >= 0) || !(r.PrivateCostFactor >= 0) {
		return RunnerCapability{}, &InvalidRunnerError{ID: r.ID, Reason: "cost factors must be >= 0"}
	}

	return RunnerCapability{
		RunnerType:        rt,
		PublicCostFactor:  r.PublicCostFactor,
		PrivateCostFactor: r.PrivateCostFactor,
		RunUntagged:       r.RunUntagged,
		AccessLevel:       al,
		Tags:              NewTagSet(r.TagList...),
	}, nil
}
