package syncqueue

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type sqliteStore struct{ db *sql.DB }

// NewSQLiteStore opens the durable queue table. Seq is the FIFO order;
// record_id is the idempotency key carried to the backing store.
func NewSQLiteStore(db *sql.DB) (Store, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS pending_sync_items (
			seq             INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id       TEXT NOT NULL,
			kind            TEXT NOT NULL,
			payload         TEXT NOT NULL,
			enqueued_at     TIMESTAMP NOT NULL,
			attempt_count   INTEGER NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMP NOT NULL,
			needs_review    INTEGER NOT NULL DEFAULT 0,
			last_error      TEXT NOT NULL DEFAULT ''
		);`)
	if err != nil {
		return nil, fmt.Errorf("init pending_sync_items: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Append(ctx context.Context, tx *sql.Tx, it *Item) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO pending_sync_items
		  (record_id, kind, payload, enqueued_at, attempt_count, next_attempt_at, needs_review, last_error)
		VALUES (?,?,?,?,0,?,0,'')`,
		it.RecordID.String(), it.Kind, string(it.Payload), it.EnqueuedAt, it.NextAttemptAt)
	if err != nil {
		return fmt.Errorf("append sync item: %w", err)
	}
	it.Seq, err = res.LastInsertId()
	return err
}

func (s *sqliteStore) Pending(ctx context.Context) ([]*Item, error) {
	return s.list(ctx, `
		SELECT seq, record_id, kind, payload, enqueued_at, attempt_count, next_attempt_at, needs_review, last_error
		FROM pending_sync_items WHERE needs_review = 0 ORDER BY seq`)
}

func (s *sqliteStore) ListNeedsReview(ctx context.Context) ([]*Item, error) {
	return s.list(ctx, `
		SELECT seq, record_id, kind, payload, enqueued_at, attempt_count, next_attempt_at, needs_review, last_error
		FROM pending_sync_items WHERE needs_review = 1 ORDER BY seq`)
}

func (s *sqliteStore) Delete(ctx context.Context, seq int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_sync_items WHERE seq = ?`, seq)
	return err
}

func (s *sqliteStore) RecordFailure(ctx context.Context, it *Item) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pending_sync_items
		SET attempt_count = ?, next_attempt_at = ?, needs_review = ?, last_error = ?
		WHERE seq = ?`,
		it.AttemptCount, it.NextAttemptAt, it.NeedsReview, it.LastError, it.Seq)
	return err
}

func (s *sqliteStore) Counts(ctx context.Context) (pending, needsReview int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
		  COUNT(CASE WHEN needs_review = 0 THEN 1 END),
		  COUNT(CASE WHEN needs_review = 1 THEN 1 END)
		FROM pending_sync_items`).Scan(&pending, &needsReview)
	return pending, needsReview, err
}

func (s *sqliteStore) list(ctx context.Context, query string) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it := &Item{}
		var recordID, payload string
		err := rows.Scan(&it.Seq, &recordID, &it.Kind, &payload, &it.EnqueuedAt,
			&it.AttemptCount, &it.NextAttemptAt, &it.NeedsReview, &it.LastError)
		if err != nil {
			return nil, err
		}
		it.RecordID = uuid.MustParse(recordID)
		it.Payload = []byte(payload)
		items = append(items, it)
	}
	return items, rows.Err()
}
