package drawer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository returns the backing-store side of the drawer audit
// trail. Touched only by the sync replayer.
func NewPostgresRepository(db *sql.DB) *postgresRepo { return &postgresRepo{db: db} }

// Upsert applies an operation idempotently; audit rows are immutable, so a
// redelivery is simply a no-op.
func (r *postgresRepo) Upsert(ctx context.Context, op *Operation) error {
	var breakdown interface{}
	if op.Breakdown != nil {
		raw, err := json.Marshal(op.Breakdown)
		if err != nil {
			return fmt.Errorf("marshal breakdown: %w", err)
		}
		breakdown = string(raw)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO drawer_operations
		  (id, session_id, kind, amount, reason, breakdown, operator_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO NOTHING`,
		op.ID, op.SessionID, op.Kind, op.Amount, op.Reason, breakdown, op.OperatorID, op.CreatedAt)
	if err != nil {
		return fault.Syncf("upsert drawer operation %s: %v", op.ID, err)
	}
	return nil
}
