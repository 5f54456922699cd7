package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
)

type sqliteRepo struct{ db *sql.DB }

// NewSQLiteRepository opens the local append-only entry table.
func NewSQLiteRepository(db *sql.DB) (Repository, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ledger_entries (
			id                  TEXT PRIMARY KEY,
			session_id          TEXT NOT NULL,
			kind                TEXT NOT NULL,
			amount              INTEGER NOT NULL,
			payment_method      TEXT NOT NULL,
			parking_session_id  TEXT,
			vat_amount          INTEGER NOT NULL DEFAULT 0,
			description         TEXT NOT NULL DEFAULT '',
			provisional_receipt TEXT NOT NULL,
			confirmed_receipt   TEXT,
			sync_state          TEXT NOT NULL DEFAULT 'PENDING',
			created_at          TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_session ON ledger_entries(session_id, created_at);`)
	if err != nil {
		return nil, fmt.Errorf("init ledger_entries: %w", err)
	}
	return &sqliteRepo{db: db}, nil
}

func (r *sqliteRepo) Insert(ctx context.Context, tx *sql.Tx, e *Entry) error {
	var parkingID interface{}
	if e.ParkingSessionID != nil {
		parkingID = e.ParkingSessionID.String()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries
		  (id, session_id, kind, amount, payment_method, parking_session_id,
		   vat_amount, description, provisional_receipt, confirmed_receipt, sync_state, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID.String(), e.SessionID.String(), e.Kind, e.Amount, e.Method, parkingID,
		e.VATAmount, e.Description, e.ProvisionalReceipt, e.ConfirmedReceipt, e.SyncState, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (r *sqliteRepo) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, `
		SELECT id, session_id, kind, amount, payment_method, parking_session_id,
		       vat_amount, description, provisional_receipt, confirmed_receipt, sync_state, created_at
		FROM ledger_entries WHERE id = ?`, id.String()))
	if err == sql.ErrNoRows {
		return nil, fault.NotFoundf("ledger entry %s", id)
	}
	return e, err
}

func (r *sqliteRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, f Filter) ([]*Entry, error) {
	query := `
		SELECT id, session_id, kind, amount, payment_method, parking_session_id,
		       vat_amount, description, provisional_receipt, confirmed_receipt, sync_state, created_at
		FROM ledger_entries WHERE session_id = ?`
	args := []interface{}{sessionID.String()}
	if f.Kind != "" {
		query += " AND kind = ?"
		args = append(args, f.Kind)
	}
	if f.Method != "" {
		query += " AND payment_method = ?"
		args = append(args, f.Method)
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *sqliteRepo) ConfirmSync(ctx context.Context, id uuid.UUID, confirmedReceipt string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE ledger_entries SET confirmed_receipt = ?, sync_state = 'CONFIRMED' WHERE id = ?`,
		confirmedReceipt, id.String())
	return err
}

// ── scanner ───────────────────────────────────────────────────────────────────

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanEntry(row rowScanner) (*Entry, error) {
	e := &Entry{}
	var id, sessionID string
	var parkingID, confirmed sql.NullString
	err := row.Scan(&id, &sessionID, &e.Kind, &e.Amount, &e.Method, &parkingID,
		&e.VATAmount, &e.Description, &e.ProvisionalReceipt, &confirmed, &e.SyncState, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.ID = uuid.MustParse(id)
	e.SessionID = uuid.MustParse(sessionID)
	if parkingID.Valid {
		pid := uuid.MustParse(parkingID.String)
		e.ParkingSessionID = &pid
	}
	if confirmed.Valid {
		e.ConfirmedReceipt = &confirmed.String
	}
	return e, nil
}
