// Package recerr defines the error taxonomy shared by the reconciliation core.
package recerr

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a verification is requested against an
// unknown transaction, or a session/invoice lookup misses. Fatal to that
// single operation only.
var ErrNotFound = errors.New("not found")

// ParseError reports a single statement row that could not be normalized.
// The row is skipped; the batch continues.
type ParseError struct {
	Row   int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("statement row %d: unparseable %s: %v", e.Row, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MatchServiceError reports that the external matching collaborator was
// unavailable or returned output that does not satisfy the candidate
// contract. The matching run fails as a whole and no candidates are
// published; the caller may retry or fall back to the rule-based strategy.
type MatchServiceError struct {
	Err error
}

func (e *MatchServiceError) Error() string {
	return fmt.Sprintf("match service: %v", e.Err)
}

func (e *MatchServiceError) Unwrap() error { return e.Err }
