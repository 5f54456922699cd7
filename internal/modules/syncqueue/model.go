package syncqueue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Item is one durably queued write awaiting backing-store acknowledgment.
// RecordID is the client-generated id of the originating record, which is
// also the idempotency key at the store boundary: redelivering an item can
// never duplicate a row. The item is deleted only after the store
// acknowledges that exact id.
type Item struct {
	Seq           int64           `json:"seq"`
	RecordID      uuid.UUID       `json:"record_id"`
	Kind          string          `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	EnqueuedAt    time.Time       `json:"enqueued_at"`
	AttemptCount  int             `json:"attempt_count"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
	NeedsReview   bool            `json:"needs_review"`
	LastError     string          `json:"last_error,omitempty"`
}

// Status is the pending-indicator surface for the UI badge.
type Status struct {
	Pending     int  `json:"pending"`
	NeedsReview int  `json:"needs_review"`
	Replaying   bool `json:"replaying"`
}
