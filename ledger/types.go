/*
Package ledger provides the core point ledger engine.

PURPOSE:
  This package contains the types and rules for the append-only point
  ledger that backs the loyalty program. Every point a field installer
  earns by scanning a product, and every point spent on a reward, is a
  Transaction here. Balance is always computed by replaying transactions -
  there is no separate "balance" field that can get out of sync.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: An immutable ledger entry recording a balance change
  - ScanToken: The product-unique identifier embedded in a QR code
  - UserID/TransactionID: Type-safe identifiers
  - Page: Cursor for paging through transaction history

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified or deleted
  2. Derivation: Balance, level and badges are computed, never stored
  3. Type Safety: Strong typing for IDs prevents mixing user/token IDs
  4. Auditability: Every transaction carries a description and the
     entity (scan token or reward) that caused it

SEE ALSO:
  - ledger.go: Append/history/balance operations
  - levels.go: Level derivation from balance
  - store.go: Persistence interfaces
*/
package ledger

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type TransactionID string

// ScanToken is the product-unique identifier carried in a QR payload.
// Always stored lowercase; the validator normalizes casing before any
// guard lookup so that the uniqueness constraint sees one canonical form.
type ScanToken string

type BadgeID string
type RewardID string

// =============================================================================
// TRANSACTION - Atomic change to a user's point balance
// =============================================================================

type TransactionType string

const (
	TxEarning    TransactionType = "earning"    // Points credited for an accepted scan
	TxRedemption TransactionType = "redemption" // Points spent on a catalog reward
)

// Transaction is one immutable ledger entry. Amount is always positive;
// the Type decides the sign when balance is derived.
type Transaction struct {
	ID          TransactionID
	UserID      UserID
	Type        TransactionType
	Amount      int64
	Description string

	// RelatedEntity is the scan token for earnings and the reward ID for
	// redemptions. Earnings whose RelatedEntity is a scan token are what
	// the achievement engine counts as installations.
	RelatedEntity string

	CreatedAt time.Time
}

// IsInstallation reports whether this transaction represents a credited
// product installation (an earning tied to a scan token).
func (t Transaction) IsInstallation() bool {
	return t.Type == TxEarning && t.RelatedEntity != ""
}

// =============================================================================
// SCAN RECORD - Durable proof that a token has been consumed
// =============================================================================

// ScanRecord is created exactly once per ScanToken, the moment a scan is
// accepted. It is never mutated or deleted: its existence is what prevents
// the same physical code from being redeemed twice.
type ScanRecord struct {
	Token     ScanToken
	UserID    UserID
	ScannedAt time.Time
}

// =============================================================================
// PAGING
// =============================================================================

// Page selects a window of transaction history. Limit <= 0 means the
// store default; callers may re-issue the same page at any time because
// the ledger is append-only and nothing is ever retracted mid-iteration.
type Page struct {
	Offset int
	Limit  int
}

const DefaultPageLimit = 50

func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// =============================================================================
// BALANCE COMPONENTS - Raw sums the balance is derived from
// =============================================================================

// BalanceComponents are the two sums that define a balance. Kept separate
// so a negative derived balance can be reported with full context instead
// of being silently clamped.
type BalanceComponents struct {
	Earned   int64
	Redeemed int64
}

func (b BalanceComponents) Net() int64 { return b.Earned - b.Redeemed }
