/*
levels.go - Level derivation from balance

PURPOSE:
  Levels are a monotonic step function over the current balance. Level 1
  starts at 0 points; each further level has a configured threshold.
  Thresholds are configuration, not hard-coded business logic: changing
  them changes every user's level on the next read, the same way badge
  recomputation works.

KEY INSIGHT:
  Nothing here is stored. LevelOf and ProgressToNext are pure functions of
  balance, so a threshold change can never leave stale level state behind.

SEE ALSO:
  - achievement/evaluator.go: Uses LevelOf for badge MinLevel checks
  - config/config.go: Threshold configuration
*/
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEVEL SCHEDULE - Monotonic thresholds
// =============================================================================

// LevelSchedule holds the balance thresholds at which each level begins.
// Thresholds[0] is the start of level 1 and must be 0; the slice must be
// strictly increasing.
type LevelSchedule struct {
	Thresholds []int64
}

// DefaultLevelSchedule mirrors the thresholds the program launched with.
func DefaultLevelSchedule() LevelSchedule {
	return LevelSchedule{Thresholds: []int64{0, 100, 300, 700, 1500}}
}

// NewLevelSchedule validates and wraps a threshold list.
func NewLevelSchedule(thresholds []int64) (LevelSchedule, error) {
	if len(thresholds) == 0 {
		return LevelSchedule{}, fmt.Errorf("level schedule requires at least one threshold")
	}
	if thresholds[0] != 0 {
		return LevelSchedule{}, fmt.Errorf("level 1 must start at 0, got %d", thresholds[0])
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return LevelSchedule{}, fmt.Errorf("thresholds must be strictly increasing: %d follows %d",
				thresholds[i], thresholds[i-1])
		}
	}
	return LevelSchedule{Thresholds: thresholds}, nil
}

// MaxLevel is the highest attainable level.
func (s LevelSchedule) MaxLevel() int { return len(s.Thresholds) }

// LevelOf returns the level a balance sits in: the highest level whose
// threshold the balance meets.
func (s LevelSchedule) LevelOf(balance int64) int {
	level := 1
	for i, threshold := range s.Thresholds {
		if balance >= threshold {
			level = i + 1
		} else {
			break
		}
	}
	return level
}

// Progress describes how far through the current level a balance is.
type Progress struct {
	Level           int
	Percent         decimal.Decimal // 0-100, two decimal places
	PointsRemaining int64           // Points until next level; 0 at max level
}

// ProgressToNext computes UI progress toward the next level. At the top
// level the percentage is 100 and nothing remains.
func (s LevelSchedule) ProgressToNext(balance int64) Progress {
	level := s.LevelOf(balance)
	if level >= s.MaxLevel() {
		return Progress{Level: level, Percent: decimal.NewFromInt(100)}
	}

	floor := s.Thresholds[level-1]
	ceiling := s.Thresholds[level]
	span := decimal.NewFromInt(ceiling - floor)
	into := decimal.NewFromInt(balance - floor)

	return Progress{
		Level:           level,
		Percent:         into.Div(span).Mul(decimal.NewFromInt(100)).Round(2),
		PointsRemaining: ceiling - balance,
	}
}
