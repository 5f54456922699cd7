package reconcile

import (
	"github.com/google/uuid"

	"github.com/rgbautista/parkpoint-backend/internal/modules/drawer"
	"github.com/rgbautista/parkpoint-backend/internal/modules/ledger"
)

// DefaultTolerance is the variance, in minor units, under which a cash count
// is accepted without a compensating adjustment. Configurable per deployment;
// 100 minor units is 1.00 currency unit.
const DefaultTolerance int64 = 100

// Summary is the cash position derived from the ledger. It is recomputed on
// every request and never persisted: the ledger is the source of truth, not
// a cached total. All amounts are integer minor units.
type Summary struct {
	SessionID       uuid.UUID `json:"session_id"`
	StartingCash    int64     `json:"starting_cash"`
	CashSales       int64     `json:"cash_sales"`
	CashAdjustments int64     `json:"cash_adjustments"`
	CashDeposits    int64     `json:"cash_deposits"`
	ExpectedCash    int64     `json:"expected_cash"`
	ActualCash      *int64    `json:"actual_cash,omitempty"`
	Difference      *int64    `json:"difference,omitempty"`
}

// CountRequest carries the physical denomination count.
type CountRequest struct {
	Denominations drawer.Breakdown `json:"denominations"`
	Notes         string           `json:"notes,omitempty"`
}

// CountResult reports the reconciliation outcome. A variance outside the
// tolerance is not an error: it is compensated automatically and surfaced
// here for the operator.
type CountResult struct {
	SessionID       uuid.UUID     `json:"session_id"`
	ExpectedCash    int64         `json:"expected_cash"`
	CountedCash     int64         `json:"counted_cash"`
	Variance        int64         `json:"variance"`
	WithinTolerance bool          `json:"within_tolerance"`
	Adjustment      *ledger.Entry `json:"adjustment,omitempty"`
}

// AdjustDirection says which way a manual correction moves drawer cash.
type AdjustDirection string

const (
	DirectionAdd    AdjustDirection = "ADD"
	DirectionRemove AdjustDirection = "REMOVE"
)

// AdjustRequest is the payload for a manual cash adjustment. Amount is a
// positive value; Direction supplies the sign.
type AdjustRequest struct {
	Amount    int64           `json:"amount"`
	Reason    string          `json:"reason"`
	Direction AdjustDirection `json:"direction"`
}

// DepositRequest is the payload for removing cash from the drawer into a
// safe or bank drop.
type DepositRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
	Method string `json:"method"`
}
