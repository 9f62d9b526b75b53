/*
orchestrator.go - Scan state machine

PURPOSE:
  Coordinates one scan request end to end:

    Received -> Validated -> Claimed -> Recorded -> Completed

  with failure exits at each stage (RejectedMalformed, RejectedInvalidToken,
  RejectedUnknown, RejectedInactive, RejectedDuplicate).

OWNERSHIP:
  This orchestrator exclusively owns the decision to create a ScanRecord +
  earning Transaction pair. No other path may create either.

ATOMICITY:
  The claim and the earning append run inside ONE store transaction. If the
  append fails after the guard claimed the token, the claim is rolled back:
  a user is never left with a consumed code and no points, and no success
  is reported before the append is durably committed.

IDEMPOTENCY FOR CLIENT RETRIES:
  If a client resubmits a scan the server already completed, the claim
  reports DuplicateScan because the ScanRecord exists. When the recorded
  user matches the requester this is translated into an "already credited
  to you" outcome rather than a duplicate-fraud message. Clients must never
  auto-resubmit the same token; a rejection invites scanning a different
  code.

REJECTIONS vs FAILURES:
  Business rejections come back as a Result with a machine-readable Code
  and human Message (the UI needs the code to decide whether retry makes
  sense). Infrastructure and consistency failures come back as errors.

SEE ALSO:
  - validator.go, guard.go: Stages 2 and 3
  - achievement/evaluator.go: Badge diff after recording
*/
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldloop/rewards-engine/achievement"
	"github.com/fieldloop/rewards-engine/ledger"
)

// =============================================================================
// STATES AND OUTCOME CODES
// =============================================================================

type State string

const (
	StateReceived  State = "received"
	StateValidated State = "validated"
	StateClaimed   State = "claimed"
	StateRecorded  State = "recorded"
	StateCompleted State = "completed"

	StateRejectedMalformed    State = "rejected_malformed"
	StateRejectedInvalidToken State = "rejected_invalid_token"
	StateRejectedUnknown      State = "rejected_unknown"
	StateRejectedInactive     State = "rejected_inactive"
	StateRejectedDuplicate    State = "rejected_duplicate"
)

// Machine-readable outcome codes, part of the external contract.
const (
	CodeInvalidFormat   = "INVALID_FORMAT"
	CodeInvalidUUID     = "INVALID_UUID"
	CodeUnknownProduct  = "UNKNOWN_PRODUCT"
	CodeInactiveProduct = "INACTIVE_PRODUCT"
	CodeDuplicateScan   = "DUPLICATE_SCAN"
)

// Result is the terminal outcome of one scan request.
type Result struct {
	State   State
	Success bool

	// Rejection details (Success == false)
	Code    string
	Message string

	// Duplicate details: who consumed the token, and whether that was
	// the requester themselves (the "already credited to you" case).
	AlreadyCredited bool
	ScannedBy       ledger.UserID
	ScannedAt       time.Time

	// Success payload (Success == true)
	ProductName       string
	PointsAwarded     int64
	NewBalance        int64
	NewlyEarnedBadges []ledger.BadgeID
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

type Orchestrator struct {
	Validator *Validator
	Guard     *Guard
	Store     ledger.TxStore
	Ledger    *ledger.Ledger
	Badges    *achievement.Evaluator
}

func NewOrchestrator(v *Validator, g *Guard, store ledger.TxStore, l *ledger.Ledger, badges *achievement.Evaluator) *Orchestrator {
	return &Orchestrator{Validator: v, Guard: g, Store: store, Ledger: l, Badges: badges}
}

// Scan processes one scan request for an authenticated user.
//
// Business rejections are returned as a Result with Success == false and a
// nil error. A non-nil error means infrastructure failure or a consistency
// violation; nothing user-facing can be concluded from it.
func (o *Orchestrator) Scan(ctx context.Context, rawCode string, userID ledger.UserID) (*Result, error) {
	// Received -> Validated
	token, err := o.Validator.Validate(rawCode)
	if err != nil {
		return rejectValidation(err), nil
	}

	// Catalog resolution happens on the parent store, before the claim
	// transaction opens. A product deactivated between here and the claim
	// merely stops earning points; the claim stays correct either way.
	product, err := o.Guard.Lookup(ctx, token)
	if err != nil {
		return o.rejectClaim(err, userID)
	}

	// Badge set before the scan, for the newly-earned diff.
	before, err := o.Badges.Earned(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Validated -> Claimed -> Recorded, atomically. A failed append rolls
	// the claim back.
	err = o.Store.WithTx(ctx, func(s ledger.Store, g ledger.GuardStore) error {
		if claimErr := o.Guard.Claim(ctx, g, token, userID); claimErr != nil {
			return claimErr
		}

		earningLedger := ledger.New(s)
		_, appendErr := earningLedger.Append(ctx, userID, ledger.TxEarning,
			product.PointValue,
			fmt.Sprintf("Installation of %s", product.Name),
			string(token))
		return appendErr
	})
	if err != nil {
		return o.rejectClaim(err, userID)
	}

	// Recorded -> Completed: recompute derived state for the response.
	balance, err := o.Ledger.BalanceOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	after, err := o.Badges.Earned(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Result{
		State:             StateCompleted,
		Success:           true,
		ProductName:       product.Name,
		PointsAwarded:     product.PointValue,
		NewBalance:        balance,
		NewlyEarnedBadges: newlyEarned(before, after),
	}, nil
}

// =============================================================================
// REJECTION TRANSLATION
// =============================================================================

func rejectValidation(err error) *Result {
	if errors.Is(err, ledger.ErrInvalidToken) {
		return &Result{
			State:   StateRejectedInvalidToken,
			Code:    CodeInvalidUUID,
			Message: "The scanned code does not contain a valid product token. Please re-scan.",
		}
	}
	return &Result{
		State:   StateRejectedMalformed,
		Code:    CodeInvalidFormat,
		Message: "The scanned code is not a recognized product code. Please re-scan.",
	}
}

func (o *Orchestrator) rejectClaim(err error, userID ledger.UserID) (*Result, error) {
	var dup *ledger.DuplicateScanError
	switch {
	case errors.As(err, &dup):
		res := &Result{
			State:     StateRejectedDuplicate,
			Code:      CodeDuplicateScan,
			ScannedBy: dup.ScannedBy,
			ScannedAt: dup.ScannedAt,
		}
		if dup.ScannedBy == userID {
			res.AlreadyCredited = true
			res.Message = fmt.Sprintf("This code was already credited to you on %s.",
				dup.ScannedAt.Format("2006-01-02"))
		} else {
			res.Message = "This code has already been redeemed. Scan a different product."
		}
		return res, nil

	case errors.Is(err, ledger.ErrUnknownProduct):
		return &Result{
			State:   StateRejectedUnknown,
			Code:    CodeUnknownProduct,
			Message: "This code does not match any product in the catalog.",
		}, nil

	case errors.Is(err, ledger.ErrInactiveProduct):
		return &Result{
			State:   StateRejectedInactive,
			Code:    CodeInactiveProduct,
			Message: "This product is no longer eligible for points.",
		}, nil

	default:
		// Infrastructure or consistency failure; the claim was rolled back.
		return nil, err
	}
}

func newlyEarned(before, after []ledger.BadgeID) []ledger.BadgeID {
	had := make(map[ledger.BadgeID]bool, len(before))
	for _, id := range before {
		had[id] = true
	}
	diff := []ledger.BadgeID{}
	for _, id := range after {
		if !had[id] {
			diff = append(diff, id)
		}
	}
	return diff
}
