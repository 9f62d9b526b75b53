/*
Package rewards implements reward redemption against the point ledger.

PURPOSE:
  An installer spends accumulated points on a catalog reward. This package
  owns the only path that appends redemption transactions.

NON-NEGATIVE BALANCE UNDER CONCURRENT SPEND:
  The balance check and the redemption append run inside one per-user
  transaction scope (TxStore.WithUserTx). Two concurrent redemptions for
  the same user are serialized: exactly one can win when the balance only
  covers one, and the loser gets InsufficientBalanceError. The balance can
  never go negative.

NO PARTIAL REDEMPTION:
  A reward costs what it costs. Either the full cost is appended or
  nothing is.

SEE ALSO:
  - ledger/store.go: WithUserTx contract
  - scan/orchestrator.go: The earning counterpart
*/
package rewards

import (
	"context"
	"fmt"

	"github.com/fieldloop/rewards-engine/ledger"
)

// =============================================================================
// REDEEMER
// =============================================================================

type Redeemer struct {
	Store   ledger.TxStore
	Catalog ledger.CatalogStore
}

func NewRedeemer(store ledger.TxStore, catalog ledger.CatalogStore) *Redeemer {
	return &Redeemer{Store: store, Catalog: catalog}
}

// Redeem spends points on a reward for a user.
//
// Fails with ErrUnknownReward when the reward doesn't exist (or is no
// longer active), and *InsufficientBalanceError when the derived balance
// doesn't cover the cost. On success exactly one redemption transaction
// of the reward's cost has been appended.
func (r *Redeemer) Redeem(ctx context.Context, userID ledger.UserID, rewardID ledger.RewardID) (ledger.Transaction, error) {
	reward, err := r.Catalog.RewardByID(ctx, rewardID)
	if err != nil {
		return ledger.Transaction{}, err
	}

	var tx ledger.Transaction
	err = r.Store.WithUserTx(ctx, userID, func(s ledger.Store, _ ledger.GuardStore) error {
		spendLedger := ledger.New(s)

		balance, balErr := spendLedger.BalanceOf(ctx, userID)
		if balErr != nil {
			return balErr
		}
		if balance < reward.Cost {
			return &ledger.InsufficientBalanceError{
				UserID:    userID,
				Available: balance,
				Requested: reward.Cost,
			}
		}

		appended, appendErr := spendLedger.Append(ctx, userID, ledger.TxRedemption,
			reward.Cost,
			fmt.Sprintf("Redeemed %s", reward.Name),
			string(reward.ID))
		if appendErr != nil {
			return appendErr
		}
		tx = appended
		return nil
	})
	if err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}
