package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an update-by-key lookup finds no matching row.
var ErrNotFound = errors.New("record not found")

// ErrStoreUnavailable wraps remote-store call failures. The store adapter
// does not retry; retry policy belongs to callers.
var ErrStoreUnavailable = errors.New("store unavailable")

// ErrInvalid marks request payloads rejected by validation.
var ErrInvalid = errors.New("invalid input")

// ErrForbidden marks access outside the caller's territory scope.
var ErrForbidden = errors.New("forbidden")

// ReconciliationError wraps any failure during an alert reconciliation pass.
// It is reported as a warning to the triggering case write, which still
// succeeds on its own.
type ReconciliationError struct {
	CaseID string
	Err    error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("alert reconciliation failed for case %s: %v", e.CaseID, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}
