package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidRange     = errors.New("invalid date range")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidFlow      = errors.New("invalid flow")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrEmptyDescription = errors.New("empty description")
	// ErrAmountTooLarge wraps ErrInvalidAmount for amounts above MaxAmount.
	ErrAmountTooLarge = fmt.Errorf("%w: must not exceed %s", ErrInvalidAmount, MaxAmount.StringFixed(2))

	// ErrNotFound is returned when a record does not exist, including a bill
	// that has already been settled.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a bill already has a settlement transaction.
	ErrConflict = errors.New("conflict")
	// ErrNotPending is returned when editing or deleting a bill that is no longer open.
	ErrNotPending = errors.New("bill is not pending")
)

// ValidationError reports malformed or out-of-range input for a single field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
