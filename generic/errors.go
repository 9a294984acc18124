/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The timeoff package adds the overlap and confirmation errors on top of
  these and wraps store errors with operation context.

ERROR CATEGORIES:
  1. Input errors - malformed dates, missing fields (no mutation attempted)
  2. Balance errors - insufficient balance, ledger inconsistency
  3. Store errors - not found, duplicate bucket

USAGE:
  Callers branch with errors.Is / errors.As:

    var ib *generic.InsufficientBalanceError
    if errors.As(err, &ib) {
        log.Printf("short by %s days", ib.Shortfall())
    }

SEE ALSO:
  - ledger.go: Raises balance errors
  - timeoff/errors.go: Overlap and confirmation errors
  - api/handlers.go: Maps errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for malformed dates, end before start or
	// a missing required field. Nothing has been mutated.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientBalance is returned when a debit exceeds the employee's
	// total Active balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrLedgerInconsistency is returned when a debit could not be fully
	// settled although the balance check passed. It always aborts the
	// enclosing transaction.
	ErrLedgerInconsistency = errors.New("ledger inconsistency")

	// ErrNotFound is returned when a referenced record, bucket or employee
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateBucket is returned when an employee already has a bucket
	// for the given year.
	ErrDuplicateBucket = errors.New("bucket already exists for year")

	// ErrBucketExpired is returned when a ledger mutation targets an Expired bucket.
	ErrBucketExpired = errors.New("bucket is expired")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidInputError names the offending field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	EmployeeID EmployeeID
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, requested %s, shortfall %s",
		e.Available, e.Requested, e.Shortfall())
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// LedgerInconsistencyError reports the days a debit could not place.
type LedgerInconsistencyError struct {
	EmployeeID EmployeeID
	Unsettled  decimal.Decimal
}

func (e *LedgerInconsistencyError) Error() string {
	return fmt.Sprintf("ledger inconsistency for %s: %s days left unsettled after debit",
		e.EmployeeID, e.Unsettled)
}

func (e *LedgerInconsistencyError) Unwrap() error { return ErrLedgerInconsistency }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrDuplicateBucket) ||
		errors.Is(err, ErrBucketExpired)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
