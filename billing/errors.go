/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify errors with errors.Is/As, never by string matching.

ERROR CATEGORIES:
  1. Validation errors - Bad amount or date; recoverable, never partially
     applied. Surfaced verbatim to the end user.
  2. Not-found errors - Missing account/unit; the caller must abort the
     whole payment batch rather than apply a partial set.
  3. Inconsistent-state errors - Reconstruction disagrees with the stored
     balance beyond a rounding tolerance; signals drift requiring a forced
     recalculation, not a silent inline fix.

RETRY POLICY:
  Financial mutations are never retried automatically; a blind retry risks
  duplicate payments. The repair path is an explicit operator action.
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrUnitNotFound is returned when a referenced unit doesn't exist.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrInvalidPayment is the base of every validation failure.
	ErrInvalidPayment = errors.New("invalid payment")

	// ErrInconsistentState is returned when the reconstructed ledger and
	// the stored balances disagree beyond the rounding tolerance.
	ErrInconsistentState = errors.New("inconsistent account state")

	// ErrDuplicatePayment is returned when a payment id is appended twice.
	ErrDuplicatePayment = errors.New("duplicate payment")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a rejected payment with a human-readable reason.
// The payment has no partial effect.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return ErrInvalidPayment }

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string // "account" or "unit"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	if e.Kind == "unit" {
		return ErrUnitNotFound
	}
	return ErrAccountNotFound
}

// InconsistentStateError reports drift between the stored balances and the
// authoritative reconstruction.
type InconsistentStateError struct {
	AccountID           string
	StoredDue           Money
	ReconstructedDue    Money
	StoredCredit        Money
	ReconstructedCredit Money
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("account %s drifted: stored due=%s credit=%s, reconstructed due=%s credit=%s",
		e.AccountID, e.StoredDue, e.StoredCredit, e.ReconstructedDue, e.ReconstructedCredit)
}

func (e *InconsistentStateError) Unwrap() error { return ErrInconsistentState }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// and can be fixed by re-prompting the user.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPayment)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrUnitNotFound)
}
