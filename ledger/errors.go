/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages (scan, rewards) wrap these with additional context.

ERROR CATEGORIES:
  1. Input errors        - Malformed codes, invalid tokens. Recoverable by
                           re-scanning; never logged as anomalies.
  2. Business rejections - Duplicate scan, unknown/inactive product,
                           insufficient balance. Expected outcomes.
  3. Consistency errors  - Negative derived balance, orphaned references.
                           Internal failures; raised distinctly so
                           monitoring can tell "user did something
                           disallowed" from "the ledger is corrupt".

USAGE:
  if errors.Is(err, ledger.ErrDuplicateScan) {
      var dup *ledger.DuplicateScanError
      errors.As(err, &dup)
      // dup.ScannedBy / dup.ScannedAt for the support message
  }

SEE ALSO:
  - ledger.go: Uses these errors
  - api/errors.go: Maps these to HTTP status + error codes
*/
package ledger

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMalformedCode is returned when a scanned string is not one of the
	// recognized QR URL shapes.
	ErrMalformedCode = errors.New("malformed code")

	// ErrInvalidToken is returned when the embedded token is not a
	// syntactically valid version-4 UUID.
	ErrInvalidToken = errors.New("invalid scan token")

	// ErrUnknownProduct is returned when a token has no catalog entry.
	ErrUnknownProduct = errors.New("unknown product")

	// ErrInactiveProduct is returned when the catalog entry exists but the
	// product has been deactivated. Past redemptions are never retracted.
	ErrInactiveProduct = errors.New("inactive product")

	// ErrDuplicateScan is returned when a token already has a ScanRecord.
	// This is expected behavior, including for honest client retries.
	ErrDuplicateScan = errors.New("duplicate scan")

	// ErrInvalidAmount is returned when an append carries a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be a positive integer")

	// ErrInsufficientBalance is returned when a redemption exceeds the
	// derived balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnknownReward is returned when a reward ID has no catalog entry.
	ErrUnknownReward = errors.New("unknown reward")

	// ErrUserNotFound is returned when a referenced user doesn't exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrLedgerCorrupt is returned when the ledger derives an impossible
	// state, e.g. a negative balance. Never clamped, never retried.
	ErrLedgerCorrupt = errors.New("ledger consistency violation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicateScanError reports who consumed the token and when, so the UI can
// tell an installer "already redeemed by X on date" - or, when ScannedBy
// matches the requester, "already credited to you".
type DuplicateScanError struct {
	Token     ScanToken
	ScannedBy UserID
	ScannedAt time.Time
}

func (e *DuplicateScanError) Error() string {
	return fmt.Sprintf("token %s already scanned by %s at %s",
		e.Token, e.ScannedBy, e.ScannedAt.Format(time.RFC3339))
}

func (e *DuplicateScanError) Unwrap() error { return ErrDuplicateScan }

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	UserID    UserID
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %d, requested %d, shortfall %d",
		e.Available, e.Requested, e.Shortfall())
}

func (e *InsufficientBalanceError) Shortfall() int64 { return e.Requested - e.Available }

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// CorruptLedgerError reports a derived balance that violates the
// non-negative invariant. This indicates a ledger bug, not user error.
type CorruptLedgerError struct {
	UserID     UserID
	Components BalanceComponents
}

func (e *CorruptLedgerError) Error() string {
	return fmt.Sprintf("derived balance for %s is negative: earned %d, redeemed %d",
		e.UserID, e.Components.Earned, e.Components.Redeemed)
}

func (e *CorruptLedgerError) Unwrap() error { return ErrLedgerCorrupt }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is a business-rule rejection or
// input error, i.e. the request was understood and deliberately refused.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMalformedCode) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrUnknownProduct) ||
		errors.Is(err, ErrInactiveProduct) ||
		errors.Is(err, ErrDuplicateScan) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrUnknownReward)
}

// IsConsistencyViolation returns true for internal invariant breaches that
// must abort the operation and alert, never be shown as a user mistake.
func IsConsistencyViolation(err error) bool {
	return errors.Is(err, ErrLedgerCorrupt)
}

// IsNotFound returns true if the error indicates a missing catalog entry
// or user.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownProduct) ||
		errors.Is(err, ErrUnknownReward) ||
		errors.Is(err, ErrUserNotFound)
}
