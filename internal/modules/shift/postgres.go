package shift

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository returns the backing-store side of shift sessions.
// Touched only by the sync replayer. The store carries the same partial
// unique index on (operator_id) WHERE status = 'ACTIVE', so two devices
// racing to open a shift for one operator resolve to one winner here.
func NewPostgresRepository(db *sql.DB) *postgresRepo { return &postgresRepo{db: db} }

// Upsert applies the full session row keyed by client-generated id. A start
// inserts; an end or cancel redelivers the same id with the terminal state.
func (r *postgresRepo) Upsert(ctx context.Context, s *Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shift_sessions
		  (id, operator_id, location_id, start_time, end_time, starting_cash, ending_cash, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE
		SET end_time = EXCLUDED.end_time,
		    ending_cash = EXCLUDED.ending_cash,
		    status = EXCLUDED.status,
		    notes = EXCLUDED.notes`,
		s.ID, s.OperatorID, s.LocationID, s.StartTime, s.EndTime,
		s.StartingCash, s.EndingCash, s.Status, s.Notes)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fault.Conflictf("operator %s already has an active shift on the backing store", s.OperatorID)
	}
	if err != nil {
		return fault.Syncf("upsert shift session %s: %v", s.ID, err)
	}
	return nil
}
