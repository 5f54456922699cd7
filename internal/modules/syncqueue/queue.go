package syncqueue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Queue is the write side: every mutating flow enqueues a serialized copy of
// its record in the same local transaction as the optimistic write, so a
// crash can never leave committed state without its sync record.
type Queue struct {
	store Store
	log   *zap.Logger
}

func NewQueue(store Store, log *zap.Logger) *Queue {
	return &Queue{store: store, log: log.Named("syncqueue")}
}

// Enqueue satisfies each module's Outbox interface.
func (q *Queue) Enqueue(ctx context.Context, tx *sql.Tx, opKind string, recordID uuid.UUID, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", opKind, err)
	}
	now := time.Now().UTC()
	it := &Item{
		RecordID:      recordID,
		Kind:          opKind,
		Payload:       raw,
		EnqueuedAt:    now,
		NextAttemptAt: now,
	}
	if err := q.store.Append(ctx, tx, it); err != nil {
		return err
	}
	q.log.Debug("sync item enqueued",
		zap.String("kind", opKind),
		zap.String("record_id", recordID.String()))
	return nil
}
