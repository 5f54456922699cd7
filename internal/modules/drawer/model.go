package drawer

import (
	"time"

	"github.com/google/uuid"
)

// OpKind classifies a cash drawer operation.
type OpKind string

const (
	OpOpen       OpKind = "OPEN"
	OpClose      OpKind = "CLOSE"
	OpCount      OpKind = "COUNT"
	OpAdjustment OpKind = "ADJUSTMENT"
	OpDeposit    OpKind = "DEPOSIT"
	OpWithdrawal OpKind = "WITHDRAWAL"
)

// OpAppend is the sync-queue operation kind for drawer operations.
const OpAppend = "drawer.append"

// Breakdown maps a denomination face value (minor units) to the number of
// pieces counted.
type Breakdown map[int64]int

// Total returns the counted cash in minor units.
func (b Breakdown) Total() int64 {
	var total int64
	for face, count := range b {
		total += face * int64(count)
	}
	return total
}

// Operation is one audit row for the physical drawer. It never drives
// business logic by itself; the ledger does.
type Operation struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	Kind       OpKind    `json:"kind"`
	Amount     *int64    `json:"amount,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Breakdown  Breakdown `json:"denomination_breakdown,omitempty"`
	OperatorID string    `json:"operator_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewOperation builds an audit row with a fresh client-generated id.
func NewOperation(sessionID uuid.UUID, kind OpKind, operatorID string) *Operation {
	return &Operation{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Kind:       kind,
		OperatorID: operatorID,
		CreatedAt:  time.Now().UTC(),
	}
}
