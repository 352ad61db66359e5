package domain

import (
	"errors"
	"fmt"
)

// StructuralError means the document as a whole cannot be processed: a CSV
// without its required headers or a statement without its transaction
// section. No partial results accompany it.
type StructuralError struct {
	Source string
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Source == "" {
		return "structural error: " + e.Reason
	}
	return fmt.Sprintf("structural error in %s: %s", e.Source, e.Reason)
}

// FieldError is a row-scoped parse failure. It downgrades its row to invalid
// and never aborts the batch.
type FieldError struct {
	Row    int
	Field  string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("row %d: %s: %s %q", e.Row, e.Field, e.Reason, e.Value)
}

// Issue renders the error for a row's issue list, without the row prefix.
func (e *FieldError) Issue() string {
	return fmt.Sprintf("%s: %s %q", e.Field, e.Reason, e.Value)
}

// ExternalReadError wraps a failed read from a collaborator store. It must
// reach the caller; treating it as "nothing found" would corrupt duplicate and
// history signals.
type ExternalReadError struct {
	Op  string
	Err error
}

func (e *ExternalReadError) Error() string {
	return fmt.Sprintf("%s: external read failed: %v", e.Op, e.Err)
}

func (e *ExternalReadError) Unwrap() error { return e.Err }

// Retryable is always true; the store may be back on the next attempt.
func (e *ExternalReadError) Retryable() bool { return true }

// IsStructural reports whether err is or wraps a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// IsRetryable reports whether err carries a retryable cause.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}
