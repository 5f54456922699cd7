package ledger

import (
	"context"
	"database/sql"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository returns the backing-store side of the ledger. It is
// touched only by the sync replayer.
func NewPostgresRepository(db *sql.DB) *postgresRepo { return &postgresRepo{db: db} }

// Upsert applies an entry idempotently, keyed by its client-generated id, and
// returns the confirmed receipt number. The store schema is expected to
// default confirmed_receipt from its receipt sequence on insert; a
// redelivered entry gets the same number back and no second row (the DO
// UPDATE is a no-op that only makes RETURNING yield the existing row). A
// schema without that default yields NULL, in which case the provisional
// number stands as the acknowledged receipt.
func (r *postgresRepo) Upsert(ctx context.Context, e *Entry) (string, error) {
	var parkingID interface{}
	if e.ParkingSessionID != nil {
		parkingID = e.ParkingSessionID.String()
	}
	var confirmed sql.NullString
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO ledger_entries
		  (id, session_id, kind, amount, payment_method, parking_session_id,
		   vat_amount, description, provisional_receipt, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET id = ledger_entries.id
		RETURNING confirmed_receipt`,
		e.ID, e.SessionID, e.Kind, e.Amount, e.Method, parkingID,
		e.VATAmount, e.Description, e.ProvisionalReceipt, e.CreatedAt).Scan(&confirmed)
	if err != nil {
		return "", fault.Syncf("upsert ledger entry %s: %v", e.ID, err)
	}
	return receiptNumber(confirmed, e.ProvisionalReceipt), nil
}

func receiptNumber(confirmed sql.NullString, provisional string) string {
	if confirmed.Valid && confirmed.String != "" {
		return confirmed.String
	}
	return provisional
}
