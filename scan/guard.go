/*
guard.go - Exactly-once redemption guard

PURPOSE:
  Enforces that each physical product code earns points exactly once,
  across all users, for the lifetime of the system.

HOW THE GUARANTEE WORKS:
  The guard never does check-then-act. It asks the store for an atomic
  insert-if-absent of the ScanRecord: the insert attempt itself is the
  race-free arbiter. If the store rejects the insert as a duplicate, that
  rejection IS the DuplicateScan outcome, and it already carries the
  original scanner and time for the support message.

CATALOG CHECKS:
  Before claiming, the token must name a known, active product. These are
  plain reads against the parent store and MUST happen before the claim
  transaction opens: inside the transaction the parent's lock (and, for
  SQLite, its sole connection) is already held, so a catalog read there
  waits on itself. The pre-claim read is safe regardless: the catalog is
  admin-owned and read-mostly, and a product deactivated between lookup
  and claim merely stops earning points - the claim itself stays correct
  either way.

SEE ALSO:
  - ledger/store.go: GuardStore contract
  - orchestrator.go: Runs Claim inside the same atomic scope as the
    earning append
*/
package scan

import (
	"context"
	"time"

	"github.com/fieldloop/rewards-engine/ledger"
)

// =============================================================================
// REDEMPTION GUARD
// =============================================================================

type Guard struct {
	Catalog ledger.CatalogStore
}

func NewGuard(catalog ledger.CatalogStore) *Guard {
	return &Guard{Catalog: catalog}
}

// Lookup resolves a token to a known, active product. Runs against the
// parent store; call it before opening the claim transaction.
//
// Fails with ErrUnknownProduct or ErrInactiveProduct.
func (g *Guard) Lookup(ctx context.Context, token ledger.ScanToken) (*ledger.Product, error) {
	product, err := g.Catalog.ProductByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, ledger.ErrInactiveProduct
	}
	return product, nil
}

// Claim consumes a token for a user.
//
// Fails with *DuplicateScanError when the token is already consumed. The
// guardStore parameter is the transactional view the orchestrator is
// operating in, so a later append failure rolls the claim back too.
func (g *Guard) Claim(ctx context.Context, guardStore ledger.GuardStore, token ledger.ScanToken, userID ledger.UserID) error {
	rec := ledger.ScanRecord{
		Token:     token,
		UserID:    userID,
		ScannedAt: time.Now().UTC(),
	}
	return guardStore.ClaimScan(ctx, rec)
}
