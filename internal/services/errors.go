package services

import (
	"context"
	"errors"
	"fmt"

	"fluxo/internal/core"
)

// StoreError reports that the backing store failed. It is never used for
// an empty result.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: store failure: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// PartialSettlementError reports a settlement whose transaction was recorded
// but whose bill could not be removed, and whose compensating delete also
// failed. Retrying the settlement completes it.
type PartialSettlementError struct {
	BillID          string
	TransactionID   string
	Err             error
	CompensationErr error
}

func (e *PartialSettlementError) Error() string {
	return fmt.Sprintf("settlement of bill %s partially applied (transaction %s kept): %v; compensation failed: %v",
		e.BillID, e.TransactionID, e.Err, e.CompensationErr)
}

func (e *PartialSettlementError) Unwrap() []error {
	return []error{e.Err, e.CompensationErr}
}

// storeErr classifies err from a store call. Domain outcomes pass through;
// everything else becomes a *StoreError.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrConflict),
		errors.Is(err, core.ErrNotPending),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		core.IsValidation(err):
		return fmt.Errorf("%s: %w", op, err)
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
