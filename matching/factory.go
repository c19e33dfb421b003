package matching

import (
	"fmt"

	"github.com/pithecene-io/cicore/types"
)

// SourceKind discriminates the variants of Source.
type SourceKind int

const (
	// SourceRecord builds from exactly one runner record.
	SourceRecord SourceKind = iota + 1
	// SourceRelation builds from a bulk collection of runner records.
	SourceRelation
)

func (k SourceKind) String() string {
	switch k {
	case SourceRecord:
		return "record"
	case SourceRelation:
		return "relation"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// Source is what matchers are built from. Only the field selected by Kind
// is read.
type Source struct {
	Kind    SourceKind
	Record  types.RunnerRecord
	Records []types.RunnerRecord
}

// FromRecord returns a Source for a single runner record.
func FromRecord(r types.RunnerRecord) Source {
	return Source{Kind: SourceRecord, Record: r}
}

// FromRelation returns a Source for a collection of runner records.
func FromRelation(rs []types.RunnerRecord) Source {
	return Source{Kind: SourceRelation, Records: rs}
}

// Build converts src into matchers. A relation yields one matcher per
// distinct capability tuple, in first-seen order; callers must not rely on
// the order. The output never holds two matchers with the same key and is
// never longer than the input.
func Build(src Source) ([]RunnerMatcher, error) {
	switch src.Kind {
	case SourceRecord:
		m, err := buildRecord(src.Record)
		if err != nil {
			return nil, err
		}
		return []RunnerMatcher{m}, nil
	case SourceRelation:
		return buildRelation(src.Records)
	default:
		return nil, fmt.Errorf("unknown matcher source kind %v", src.Kind)
	}
}

func buildRecord(r types.RunnerRecord) (RunnerMatcher, error) {
	c, err := r.Capability()
	if err != nil {
		return RunnerMatcher{}, err
	}
	return RunnerMatcher{RunnerIDs: []int64{r.ID}, Capability: c}, nil
}

func buildRelation(rs []types.RunnerRecord) ([]RunnerMatcher, error) {
	index := make(map[string]int, len(rs))
	out := make([]RunnerMatcher, 0, len(rs))

	for i, r := range rs {
		c, err := r.Capability()
		if err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}

		key := c.Key()
		if at, ok := index[key]; ok {
			out[at].RunnerIDs = append(out[at].RunnerIDs, r.ID)
			continue
		}
		index[key] = len(out)
		out = append(out, RunnerMatcher{RunnerIDs: []int64{r.ID}, Capability: c})
	}

	return out, nil
}
