package syncqueue

import (
	"context"
	"database/sql"
)

// Store defines the durable queue storage. Append runs inside the caller's
// transaction so the optimistic write and its queue record commit together.
type Store interface {
	Append(ctx context.Context, tx *sql.Tx, it *Item) error
	Pending(ctx context.Context) ([]*Item, error)
	Delete(ctx context.Context, seq int64) error
	RecordFailure(ctx context.Context, it *Item) error
	ListNeedsReview(ctx context.Context) ([]*Item, error)
	Counts(ctx context.Context) (pending, needsReview int, err error)
}
