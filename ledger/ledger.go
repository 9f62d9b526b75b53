/*
ledger.go - Append-only transaction log

PURPOSE:
  The Ledger is the immutable source of truth for all balance changes.
  Every accepted scan and every reward redemption is recorded here.
  Balance is always computed by replaying transactions - there's no
  separate "balance" field that can get out of sync.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, transactions cannot be modified
  3. POSITIVE AMOUNTS: Every transaction carries amount > 0; the type
     decides the sign at derivation time
  4. NON-NEGATIVE BALANCE: A negative derived balance is a consistency
     violation and is surfaced as CorruptLedgerError, never clamped -
     clamping would hide a ledger bug

CORRECTIONS:
  A support-driven reversal is itself a new, explicit redemption-style
  transaction. History is never rewritten.

SEE ALSO:
  - store.go: Low-level persistence interface
  - scan/orchestrator.go: The only path that appends earnings
  - rewards/redeem.go: The only path that appends redemptions
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// LEDGER - Append-only transaction log
// =============================================================================

type Ledger struct {
	Store Store
}

func New(store Store) *Ledger {
	return &Ledger{Store: store}
}

// Append records one transaction. Amount must be a positive integer;
// anything else fails with ErrInvalidAmount before touching storage.
// The returned transaction carries the generated ID and timestamp.
func (l *Ledger) Append(ctx context.Context, userID UserID, txType TransactionType, amount int64, description, relatedEntity string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}

	tx := Transaction{
		ID:            TransactionID(uuid.NewString()),
		UserID:        userID,
		Type:          txType,
		Amount:        amount,
		Description:   description,
		RelatedEntity: relatedEntity,
		CreatedAt:     time.Now().UTC(),
	}

	if err := l.Store.AppendTransaction(ctx, tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// History returns the user's transactions newest first. Paged and
// restartable: nothing is ever retracted mid-iteration.
func (l *Ledger) History(ctx context.Context, userID UserID, page Page) ([]Transaction, error) {
	return l.Store.TransactionsByUser(ctx, userID, page.Normalize())
}

// BalanceOf derives the current balance: sum of earnings minus sum of
// redemptions. A negative result means the ledger is corrupt and is
// reported as such, not clamped to zero.
func (l *Ledger) BalanceOf(ctx context.Context, userID UserID) (int64, error) {
	comp, err := l.Store.BalanceComponents(ctx, userID)
	if err != nil {
		return 0, err
	}
	if comp.Net() < 0 {
		return 0, &CorruptLedgerError{UserID: userID, Components: comp}
	}
	return comp.Net(), nil
}

// InstallationCount returns the all-time number of credited installations:
// earning transactions whose related entity is a scan token.
func (l *Ledger) InstallationCount(ctx context.Context, userID UserID) (int64, error) {
	return l.Store.CountInstallations(ctx, userID)
}

// InstallationCountSince counts installations credited at or after the
// given instant. Used for the monthly dashboard figures only; badge
// eligibility always uses the all-time count.
func (l *Ledger) InstallationCountSince(ctx context.Context, userID UserID, since time.Time) (int64, error) {
	return l.Store.CountInstallationsSince(ctx, userID, since)
}
