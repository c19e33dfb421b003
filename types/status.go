// Package types defines core domain types for the cicore engine.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
)

// Status is a job, stage, or pipeline status.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
	StatusSkipped   Status = "skipped"
	StatusManual    Status = "manual"
	StatusScheduled Status = "scheduled"
	StatusWarning   Status = "warning"
)

// precedence lists every status from highest to lowest precedence.
// A status that sorts before success represents failure or incompleteness.
var precedence = [...]Status{
	StatusFailed,
	StatusCanceled,
	StatusWarning,
	StatusPending,
	StatusRunning,
	StatusCreated,
	StatusScheduled,
	StatusManual,
	StatusSuccess,
	StatusSkipped,
}

// ranks is derived from precedence once at init and never written again.
var ranks = func() map[Status]int {
	m := make(map[Status]int, len(precedence))
	for i, s := range precedence {
		m[s] = i
	}
	return m
}()

// ErrUnknownStatus is the sentinel matched by UnknownStatusError.
var ErrUnknownStatus = errors.New("unknown status")

// UnknownStatusError reports a status outside the fixed enumeration.
// It indicates enum drift between the caller and this package.
type UnknownStatusError struct {
	Status Status
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown status %q", string(e.Status))
}

// Is reports whether target is ErrUnknownStatus.
func (e *UnknownStatusError) Is(target error) bool {
	return target == ErrUnknownStatus
}

// Rank returns the precedence rank of s. A strictly lower rank means
// strictly higher precedence.
func Rank(s Status) (int, error) {
	r, ok := ranks[s]
	if !ok {
		return 0, &UnknownStatusError{Status: s}
	}
	return r, nil
}

// SuccessRank is the rank of StatusSuccess.
// Statuses with a lower rank are failing or incomplete.
var SuccessRank = ranks[StatusSuccess]

// Statuses returns all statuses ordered from highest to lowest precedence.
func Statuses() []Status {
	out := make([]Status, len(precedence))
	copy(out, precedence[:])
	return out
}

// ParseStatus converts s into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", &UnknownStatusError{Status: st}
	}
	return st, nil
}

// Valid reports whether s belongs to the enumeration.
func (s Status) Valid() bool {
	_, ok := ranks[s]
	return ok
}

// IsActive reports whether s belongs to a job that can still make progress.
func (s Status) IsActive() bool {
	switch s {
	case StatusCreated, StatusPending, StatusRunning, StatusScheduled:
		return true
	default:
		return false
	}
}

// IsCompleted reports whether s is terminal.
func (s Status) IsCompleted() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCanceled, StatusSkipped, StatusWarning:
		return true
	default:
		return false
	}
}

// Outranks reports whether s has strictly higher precedence than other.
// Both must be valid; unknown statuses never outrank anything.
func (s Status) Outranks(other Status) bool {
	rs, ok1 := ranks[s]
	ro, ok2 := ranks[other]
	return ok1 && ok2 && rs < ro
}

// StatusOfRank returns the status holding rank r. r must come from Rank.
func StatusOfRank(r int) Status {
	return precedence[r]
}
