package parking

import (
	"context"
	"database/sql"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository returns the backing-store side of parking. Touched
// only by the sync replayer.
func NewPostgresRepository(db *sql.DB) *postgresRepo { return &postgresRepo{db: db} }

// Apply upserts the session row and reconciles spot occupancy from it in a
// single transaction: a reassignment frees the previously stored spot, an
// active session occupies its spot, a terminal one releases it. Spot
// exclusivity is the check-and-set on the occupancy update; losing the race
// to another device surfaces as a conflict.
func (r *postgresRepo) Apply(ctx context.Context, s *Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var previousSpot sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT spot_id FROM parking_sessions WHERE id = $1`, s.ID).Scan(&previousSpot)
	if err != nil && err != sql.ErrNoRows {
		return fault.Syncf("load existing parking session: %v", err)
	}

	discounts, err := marshalDiscounts(s.Discounts)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO parking_sessions
		  (id, spot_id, shift_session_id, fee_entry_id, plate_number, vehicle_type,
		   start_time, end_time, duration_minutes, subtotal, discount_total,
		   vat_amount, total, discounts, payment_method, paid_at, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (id) DO UPDATE
		SET spot_id = EXCLUDED.spot_id,
		    end_time = EXCLUDED.end_time,
		    payment_method = EXCLUDED.payment_method,
		    paid_at = EXCLUDED.paid_at,
		    status = EXCLUDED.status`,
		s.ID, s.SpotID, s.ShiftSessionID, s.FeeEntryID, s.PlateNumber, s.VehicleType,
		s.StartTime, s.EndTime, s.DurationMinutes, s.Subtotal, s.DiscountTotal,
		s.VATAmount, s.Total, discounts, s.PaymentMethod, s.PaidAt, s.Status)
	if err != nil {
		return fault.Syncf("upsert parking session %s: %v", s.ID, err)
	}

	if previousSpot.Valid && previousSpot.String != s.SpotID.String() {
		_, err = tx.ExecContext(ctx, `
			UPDATE parking_spots SET occupied = false, occupied_by = NULL
			WHERE id = $1 AND occupied_by = $2`, previousSpot.String, s.ID)
		if err != nil {
			return fault.Syncf("free previous spot: %v", err)
		}
	}

	switch s.Status {
	case StatusActive:
		res, err := tx.ExecContext(ctx, `
			UPDATE parking_spots SET occupied = true, occupied_by = $1
			WHERE id = $2 AND (occupied = false OR occupied_by = $1)`, s.ID, s.SpotID)
		if err != nil {
			return fault.Syncf("occupy spot: %v", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fault.Conflictf("spot %s already occupied on the backing store", s.SpotID)
		}
	default:
		_, err := tx.ExecContext(ctx, `
			UPDATE parking_spots SET occupied = false, occupied_by = NULL
			WHERE id = $1 AND occupied_by = $2`, s.SpotID, s.ID)
		if err != nil {
			return fault.Syncf("release spot: %v", err)
		}
	}

	return tx.Commit()
}

// EnsureSpots provisions the spot layout idempotently.
func (r *postgresRepo) EnsureSpots(ctx context.Context, spots []*Spot) error {
	for _, sp := range spots {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO parking_spots (id, code, vehicle_type, occupied, occupied_by)
			VALUES ($1,$2,$3,false,NULL)
			ON CONFLICT (id) DO NOTHING`, sp.ID, sp.Code, sp.VehicleType)
		if err != nil {
			return fault.Syncf("ensure spot %s: %v", sp.Code, err)
		}
	}
	return nil
}
