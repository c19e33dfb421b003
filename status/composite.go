// Package status computes composite statuses for stages and pipelines.
//
// Aggregation is a fold over the precedence table in package types, so the
// result depends only on the multiset of entries and never on their order.
package status

import (
	"errors"

	"github.com/pithecene-io/cicore/types"
)

// ErrEmptyStatusSet is returned when aggregating zero entries.
// Callers must special-case stages without jobs before aggregating.
var ErrEmptyStatusSet = errors.New("cannot aggregate an empty status set")

// Entry is one job's contribution to a stage or pipeline status.
type Entry struct {
	Status       types.Status `json:"status" yaml:"status" msgpack:"status"`
	AllowFailure bool         `json:"allow_failure" yaml:"allow_failure" msgpack:"allow_failure"`
}

// Composite accumulates entries and yields their aggregate status.
// The zero value is ready to use. A Composite is not safe for concurrent
// mutation; Aggregate is the stateless entry point.
type Composite struct {
	count int

	// Highest-precedence rank seen per partition; -1 when the partition is empty.
	blocking    int
	nonBlocking int
	init        bool
}

// Add folds e into the composite. Unknown statuses are rejected and leave
// the composite unchanged.
func (c *Composite) Add(e Entry) error {
	r, err := types.Rank(e.Status)
	if err != nil {
		return err
	}
	if !c.init {
		c.blocking, c.nonBlocking, c.init = -1, -1, true
	}

	if e.AllowFailure {
		c.nonBlocking = minRank(c.nonBlocking, r)
	} else {
		c.blocking = minRank(c.blocking, r)
	}
	c.count++
	return nil
}

// Len returns the number of entries folded so far.
func (c *Composite) Len() int {
	return c.count
}

// Result returns the aggregate status of the entries added so far.
//
// A failing or incomplete blocking job decides the result outright. When
// every blocking job succeeded, a non-blocking job that failed or is still
// incomplete turns the result into warning. Otherwise the result is the
// highest-precedence status seen, which is success or skipped.
func (c *Composite) Result() (types.Status, error) {
	if c.count == 0 {
		return "", ErrEmptyStatusSet
	}

	if c.blocking >= 0 && c.blocking < types.SuccessRank {
		return types.StatusOfRank(c.blocking), nil
	}
	if c.nonBlocking >= 0 && c.nonBlocking < types.SuccessRank {
		return types.StatusWarning, nil
	}
	return types.StatusOfRank(minRank(c.blocking, c.nonBlocking)), nil
}

// Aggregate reduces entries into one status.
func Aggregate(entries []Entry) (types.Status, error) {
	if len(entries) == 0 {
		return "", ErrEmptyStatusSet
	}

	var c Composite
	for _, e := range entries {
		if err := c.Add(e); err != nil {
			return "", err
		}
	}
	return c.Result()
}

// minRank returns the smaller of two ranks, treating -1 as absent.
func minRank(a, b int) int {
	switch {
	case a < 0:
		return b
	case b < 0:
		return a
	case b < a:
		return b
	default:
		return a
	}
}
