package drawer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type sqliteRepo struct{ db *sql.DB }

// NewSQLiteRepository opens the local drawer audit table.
func NewSQLiteRepository(db *sql.DB) (Repository, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS drawer_operations (
			id          TEXT PRIMARY KEY,
			session_id  TEXT NOT NULL,
			kind        TEXT NOT NULL,
			amount      INTEGER,
			reason      TEXT NOT NULL DEFAULT '',
			breakdown   TEXT,
			operator_id TEXT NOT NULL,
			created_at  TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_drawer_session ON drawer_operations(session_id, created_at);`)
	if err != nil {
		return nil, fmt.Errorf("init drawer_operations: %w", err)
	}
	return &sqliteRepo{db: db}, nil
}

func (r *sqliteRepo) Insert(ctx context.Context, tx *sql.Tx, op *Operation) error {
	var breakdown interface{}
	if op.Breakdown != nil {
		raw, err := json.Marshal(op.Breakdown)
		if err != nil {
			return fmt.Errorf("marshal breakdown: %w", err)
		}
		breakdown = string(raw)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO drawer_operations
		  (id, session_id, kind, amount, reason, breakdown, operator_id, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		op.ID.String(), op.SessionID.String(), op.Kind, op.Amount, op.Reason,
		breakdown, op.OperatorID, op.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert drawer operation: %w", err)
	}
	return nil
}

func (r *sqliteRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*Operation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, kind, amount, reason, breakdown, operator_id, created_at
		FROM drawer_operations WHERE session_id = ? ORDER BY created_at, id`, sessionID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// LatestCount returns the most recent COUNT operation for the session, or
// nil when no count has been performed yet.
func (r *sqliteRepo) LatestCount(ctx context.Context, sessionID uuid.UUID) (*Operation, error) {
	op, err := scanOperation(r.db.QueryRowContext(ctx, `
		SELECT id, session_id, kind, amount, reason, breakdown, operator_id, created_at
		FROM drawer_operations WHERE session_id = ? AND kind = 'COUNT'
		ORDER BY created_at DESC, id DESC LIMIT 1`, sessionID.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return op, err
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanOperation(row rowScanner) (*Operation, error) {
	op := &Operation{}
	var id, sessionID string
	var amount sql.NullInt64
	var breakdown sql.NullString
	err := row.Scan(&id, &sessionID, &op.Kind, &amount, &op.Reason, &breakdown, &op.OperatorID, &op.CreatedAt)
	if err != nil {
		return nil, err
	}
	op.ID = uuid.MustParse(id)
	op.SessionID = uuid.MustParse(sessionID)
	if amount.Valid {
		op.Amount = &amount.Int64
	}
	if breakdown.Valid && breakdown.String != "" {
		if err := json.Unmarshal([]byte(breakdown.String), &op.Breakdown); err != nil {
			return nil, fmt.Errorf("unmarshal breakdown: %w", err)
		}
	}
	return op, nil
}
