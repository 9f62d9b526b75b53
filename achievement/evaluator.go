/*
Package achievement derives badge and level state from the ledger.

PURPOSE:
  Answers "which badges has this user earned?" and "how far to the next
  level?". Badge membership is NEVER stored: it is recomputed from the
  ledger and the current badge definitions on every read. Raising a
  badge's requirement retroactively revokes it; lowering it retroactively
  grants it. No write to any user record is involved either way.

ELIGIBILITY RULE:
  A badge is earned iff

    balance       >= RequiredPoints    AND
    installations >= MinInstallations  AND
    level         >= MinLevel

  where any threshold of zero is automatically satisfied. Installations
  are the ALL-TIME count of earnings tied to a scan token; the monthly
  windows on the dashboard are statistics only and never feed eligibility.

SEE ALSO:
  - ledger/levels.go: Level step function
  - scan/orchestrator.go: Uses Earned before/after a scan for the
    newly-earned diff
*/
package achievement

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fieldloop/rewards-engine/ledger"
)

// =============================================================================
// EVALUATOR
// =============================================================================

type Evaluator struct {
	Ledger  *ledger.Ledger
	Catalog ledger.CatalogStore
	Levels  ledger.LevelSchedule
}

func NewEvaluator(l *ledger.Ledger, catalog ledger.CatalogStore, levels ledger.LevelSchedule) *Evaluator {
	return &Evaluator{Ledger: l, Catalog: catalog, Levels: levels}
}

// Earned returns the badge IDs the user currently qualifies for, sorted
// for deterministic output.
func (e *Evaluator) Earned(ctx context.Context, userID ledger.UserID) ([]ledger.BadgeID, error) {
	balance, err := e.Ledger.BalanceOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	installations, err := e.Ledger.InstallationCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	defs, err := e.Catalog.Badges(ctx)
	if err != nil {
		return nil, err
	}

	level := e.Levels.LevelOf(balance)
	earned := Evaluate(balance, installations, level, defs)
	sort.Slice(earned, func(i, j int) bool { return earned[i] < earned[j] })
	return earned, nil
}

// Evaluate is the pure eligibility function. Exposed separately so tests
// and the orchestrator can evaluate against known inputs.
func Evaluate(balance, installations int64, level int, defs []ledger.Badge) []ledger.BadgeID {
	earned := []ledger.BadgeID{}
	for _, b := range defs {
		if b.RequiredPoints > 0 && balance < b.RequiredPoints {
			continue
		}
		if b.MinInstallations > 0 && installations < b.MinInstallations {
			continue
		}
		if b.MinLevel > 0 && level < b.MinLevel {
			continue
		}
		earned = append(earned, b.ID)
	}
	return earned
}

// =============================================================================
// SUMMARY - The badge/level query payload
// =============================================================================

// Summary is everything the achievements screen needs for one user.
type Summary struct {
	Balance         int64
	Level           int
	ProgressPercent decimal.Decimal
	PointsToNext    int64
	EarnedBadgeIDs  []ledger.BadgeID
}

// Summarize computes balance, level, progress and earned badges in one
// call. All values are derived; nothing is cached or stored.
func (e *Evaluator) Summarize(ctx context.Context, userID ledger.UserID) (*Summary, error) {
	balance, err := e.Ledger.BalanceOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	earned, err := e.Earned(ctx, userID)
	if err != nil {
		return nil, err
	}

	progress := e.Levels.ProgressToNext(balance)
	return &Summary{
		Balance:         balance,
		Level:           progress.Level,
		ProgressPercent: progress.Percent,
		PointsToNext:    progress.PointsRemaining,
		EarnedBadgeIDs:  earned,
	}, nil
}
