package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal server error")

	ErrLockTimeout            = errors.New("lock timeout")
	ErrTransactionConflict    = errors.New("transaction conflict")
	ErrProductNotFound        = errors.New("product not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidDelta           = errors.New("invalid delta")

	// ErrAlreadyTerminal is returned when committing or releasing a reservation
	// that is no longer in the reserved state.
	ErrAlreadyTerminal = fmt.Errorf("%w: reservation already terminal", ErrInvalidStateTransition)
)

// IsRetryable reports whether the change did not apply and may succeed if retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrTransactionConflict)
}
