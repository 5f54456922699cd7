package shift

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the shift session state machine:
// none → ACTIVE → {COMPLETED, CANCELLED}. Terminal states are final; a
// terminated session is immutable and no ledger entry may reference it.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// OpUpsert is the sync-queue operation kind for shift session writes. Start
// and end both enqueue the full session row; FIFO replay keeps them ordered.
const OpUpsert = "shift.upsert"

// Session is the time-boxed period during which one operator is accountable
// for one cash drawer. At most one ACTIVE session exists per operator.
type Session struct {
	ID           uuid.UUID  `json:"id"`
	OperatorID   string     `json:"operator_id"`
	LocationID   string     `json:"location_id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	StartingCash int64      `json:"starting_cash"`
	EndingCash   *int64     `json:"ending_cash,omitempty"`
	Status       Status     `json:"status"`
	Notes        string     `json:"notes,omitempty"`
}

// StartRequest is the payload for opening a shift. Cash amounts are integer
// minor units: PreviousCash is what the last shift left in the drawer,
// CurrentCash is what the operator verified when taking over.
type StartRequest struct {
	LocationID   string `json:"location_id"`
	PreviousCash int64  `json:"previous_cash"`
	CurrentCash  int64  `json:"current_cash"`
	Notes        string `json:"notes,omitempty"`
}

// EndRequest is the payload for closing a shift.
type EndRequest struct {
	EndCash int64  `json:"end_cash"`
	Notes   string `json:"notes,omitempty"`
}

// CancelRequest is the payload for cancelling a shift without a closing count.
type CancelRequest struct {
	Reason string `json:"reason"`
}
