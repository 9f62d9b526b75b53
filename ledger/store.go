/*
store.go - Persistence interfaces for the ledger, guard, and catalogs

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:        Transaction persistence (append, list, balance sums)
  GuardStore:   Exactly-once scan-record claims
  TxStore:      Transactional scope (atomic claim + earning)
  CatalogStore: Read-only product/badge/reward lookup

APPEND-ONLY CONTRACT:
  The Store interface enforces append-only semantics:
  - AppendTransaction(): The ONLY ledger write
  - NO Update() or Delete() methods exist
  Support-driven reversals are new explicit transactions, never deletions.

EXACTLY-ONCE CLAIMS:
  GuardStore.ClaimScan is an atomic insert-if-absent backed by a uniqueness
  constraint on the token column. The insert attempt itself is the
  race-free arbiter: a rejected insert IS the duplicate signal. There is
  deliberately no separate Exists() check to race against.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Durable SQLite store
  - ledger/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Higher-level ledger using Store
  - scan/guard.go: Redemption guard using GuardStore
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Transaction persistence (append-only)
// =============================================================================

// Store handles persistence of ledger transactions.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete. Ever.
type Store interface {
	// AppendTransaction persists one transaction. This is the ONLY write.
	AppendTransaction(ctx context.Context, tx Transaction) error

	// TransactionsByUser returns the user's transactions newest first,
	// ties broken by insertion order. Restartable: the same page can be
	// re-read at any time.
	TransactionsByUser(ctx context.Context, userID UserID, page Page) ([]Transaction, error)

	// BalanceComponents returns the earning and redemption sums for a user.
	BalanceComponents(ctx context.Context, userID UserID) (BalanceComponents, error)

	// CountInstallations returns the number of earning transactions whose
	// related entity is a scan token. Used by the achievement engine.
	CountInstallations(ctx context.Context, userID UserID) (int64, error)

	// CountInstallationsSince counts installations with CreatedAt >= since.
	// Used for dashboard statistics, not badge eligibility.
	CountInstallationsSince(ctx context.Context, userID UserID, since time.Time) (int64, error)
}

// =============================================================================
// GUARD STORE - Exactly-once scan claims
// =============================================================================

// GuardStore persists scan records with a uniqueness guarantee per token.
type GuardStore interface {
	// ClaimScan atomically inserts a ScanRecord if and only if no record
	// exists for the token. On conflict it returns a *DuplicateScanError
	// describing the existing record. The check and the insert are one
	// indivisible operation with respect to concurrent claims.
	ClaimScan(ctx context.Context, rec ScanRecord) error

	// ScanRecordOf returns the record for a token, or nil if unclaimed.
	// For audit/support queries only - never for pre-claim checks.
	ScanRecordOf(ctx context.Context, token ScanToken) (*ScanRecord, error)
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic multi-write scope
// =============================================================================

// TxStore wraps Store and GuardStore with a transaction scope.
//
// The scan orchestrator claims a token and appends the matching earning
// inside one WithTx call: if the append fails, the claim is rolled back so
// a user is never left with a consumed code and no points.
//
// WithUserTx additionally serializes per user. The reward redeemer uses it
// so a balance check and the redemption append are atomic with respect to
// concurrent spends by the same user.
type TxStore interface {
	Store
	GuardStore

	// WithTx executes fn atomically. If fn returns an error the writes
	// made through the passed stores are rolled back.
	WithTx(ctx context.Context, fn func(Store, GuardStore) error) error

	// WithUserTx is WithTx serialized per user: two concurrent calls for
	// the same user never interleave.
	WithUserTx(ctx context.Context, userID UserID, fn func(Store, GuardStore) error) error
}

// =============================================================================
// CATALOG STORE - Read-only collaborator data
// =============================================================================

// CatalogStore exposes the admin-configured catalogs the core reads.
// Creation and editing belong to the admin surface, not this engine.
type CatalogStore interface {
	// ProductByToken returns the product a token identifies, or
	// ErrUnknownProduct.
	ProductByToken(ctx context.Context, token ScanToken) (*Product, error)

	// RewardByID returns a reward, or ErrUnknownReward. Inactive rewards
	// are reported as unknown: they can no longer be redeemed.
	RewardByID(ctx context.Context, id RewardID) (*Reward, error)

	// Badges returns all badge definitions.
	Badges(ctx context.Context) ([]Badge, error)
}

// =============================================================================
// CATALOG TYPES - Owned by the admin surface, read-only here
// =============================================================================

// Product maps a scan token to a point value. Deactivation stops future
// redemptions but does not retract past ones.
type Product struct {
	Token      ScanToken
	Name       string
	PointValue int64
	Active     bool
}

// Badge is an admin-configured achievement definition. A threshold of zero
// is treated as automatically satisfied.
type Badge struct {
	ID               BadgeID
	Name             string
	RequiredPoints   int64
	MinInstallations int64
	MinLevel         int
}

// Reward is something points can be spent on.
type Reward struct {
	ID     RewardID
	Name   string
	Cost   int64
	Active bool
}
