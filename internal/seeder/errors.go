package seeder

import (
	"errors"
	"fmt"
)

var (
	ErrUniquenessCapacity  = errors.New("requested rows exceed the distinct value space")
	ErrUniquenessExhausted = errors.New("unique value retries exhausted")
	ErrIntegrityViolation  = errors.New("integrity constraint violation")
)

// UniquenessCapacityError is returned before generation starts when a
// primary or unique column cannot hold Requested distinct values.
type UniquenessCapacityError struct {
	Table     string
	Columns   []string
	Requested int
	Capacity  uint64
}

func (e *UniquenessCapacityError) Error() string {
	return fmt.Sprintf("%s.%v: %d distinct values requested but only %d available",
		e.Table, e.Columns, e.Requested, e.Capacity)
}

func (e *UniquenessCapacityError) Is(target error) bool {
	return target == ErrUniquenessCapacity
}

// UniquenessExhaustedError means a bounded retry loop gave up on a column.
type UniquenessExhaustedError struct {
	Table    string
	Columns  []string
	Row      int
	Attempts int
}

func (e *UniquenessExhaustedError) Error() string {
	return fmt.Sprintf("%s.%v: no unused value found for row %d after %d attempts",
		e.Table, e.Columns, e.Row, e.Attempts)
}

func (e *UniquenessExhaustedError) Is(target error) bool {
	return target == ErrUniquenessExhausted
}

type LoadPhase string

const (
	PhaseBegin  LoadPhase = "begin"
	PhaseDelete LoadPhase = "delete"
	PhaseRefs   LoadPhase = "references"
	PhaseInsert LoadPhase = "insert"
	PhaseCommit LoadPhase = "commit"
)

// LoadError reports where a load failed. Row is the index of the first row of
// the failing INSERT statement (-1 outside the insert phase) and Rows the number
// of rows that statement carried. Committed is true when earlier work was
// already committed and stays in the store.
type LoadError struct {
	Table     string
	Phase     LoadPhase
	Row       int
	Rows      int
	Committed bool
	Integrity bool
	Err       error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("load %s failed during %s", e.Table, e.Phase)
	if e.Row >= 0 {
		if e.Rows > 1 {
			msg += fmt.Sprintf(" at rows %d-%d", e.Row, e.Row+e.Rows-1)
		} else {
			msg += fmt.Sprintf(" at row %d", e.Row)
		}
	}
	if e.Committed {
		msg += " (partial data committed)"
	} else {
		msg += " (rolled back)"
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool {
	return target == ErrIntegrityViolation && e.Integrity
}
