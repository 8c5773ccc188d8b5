package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrCapacityExceeded       = errors.New("capacity exceeded")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNotFound               = errors.New("not found")
	ErrConcurrencyConflict    = errors.New("concurrency conflict")
	ErrPersistence            = errors.New("persistence failure")
	ErrForbidden              = errors.New("actor is not allowed to perform this action")
)

// InvalidRequestf wraps ErrInvalidRequest with a description of the offending field.
func InvalidRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// CapacityExceededError reports how many units were still free when the hold was refused.
type CapacityExceededError struct {
	UnitID    string
	Requested int
	Remaining int
	// Cause is set when the hold was refused after exhausting retries on a conflict.
	Cause error
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded for unit %s: requested %d, remaining %d", e.UnitID, e.Requested, e.Remaining)
}

func (e *CapacityExceededError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrCapacityExceeded, e.Cause}
	}
	return []error{ErrCapacityExceeded}
}

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition of reservation status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}
