package parking

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
)

type sqliteRepo struct{ db *sql.DB }

// NewSQLiteRepository opens the local parking tables.
func NewSQLiteRepository(db *sql.DB) (Repository, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS parking_spots (
			id           TEXT PRIMARY KEY,
			code         TEXT NOT NULL UNIQUE,
			vehicle_type TEXT NOT NULL,
			occupied     INTEGER NOT NULL DEFAULT 0,
			occupied_by  TEXT
		);
		CREATE TABLE IF NOT EXISTS parking_sessions (
			id               TEXT PRIMARY KEY,
			spot_id          TEXT NOT NULL,
			shift_session_id TEXT NOT NULL,
			fee_entry_id     TEXT NOT NULL,
			plate_number     TEXT NOT NULL,
			vehicle_type     TEXT NOT NULL,
			start_time       TIMESTAMP NOT NULL,
			end_time         TIMESTAMP,
			duration_minutes INTEGER NOT NULL,
			subtotal         INTEGER NOT NULL,
			discount_total   INTEGER NOT NULL,
			vat_amount       INTEGER NOT NULL,
			total            INTEGER NOT NULL,
			discounts        TEXT,
			payment_method   TEXT NOT NULL,
			paid_at          TIMESTAMP,
			status           TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_parking_spot ON parking_sessions(spot_id, status);`)
	if err != nil {
		return nil, fmt.Errorf("init parking tables: %w", err)
	}
	return &sqliteRepo{db: db}, nil
}

func (r *sqliteRepo) InsertSession(ctx context.Context, tx *sql.Tx, s *Session) error {
	discounts, err := marshalDiscounts(s.Discounts)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO parking_sessions
		  (id, spot_id, shift_session_id, fee_entry_id, plate_number, vehicle_type,
		   start_time, end_time, duration_minutes, subtotal, discount_total,
		   vat_amount, total, discounts, payment_method, paid_at, status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID.String(), s.SpotID.String(), s.ShiftSessionID.String(), s.FeeEntryID.String(),
		s.PlateNumber, s.VehicleType, s.StartTime, s.EndTime, s.DurationMinutes,
		s.Subtotal, s.DiscountTotal, s.VATAmount, s.Total, discounts,
		s.PaymentMethod, s.PaidAt, s.Status)
	if err != nil {
		return fmt.Errorf("insert parking session: %w", err)
	}
	return nil
}

func (r *sqliteRepo) UpdateSession(ctx context.Context, tx *sql.Tx, s *Session) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE parking_sessions
		SET spot_id = ?, end_time = ?, payment_method = ?, paid_at = ?, status = ?
		WHERE id = ?`,
		s.SpotID.String(), s.EndTime, s.PaymentMethod, s.PaidAt, s.Status, s.ID.String())
	if err != nil {
		return fmt.Errorf("update parking session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fault.NotFoundf("parking session %s", s.ID)
	}
	return nil
}

func (r *sqliteRepo) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `
		SELECT id, spot_id, shift_session_id, fee_entry_id, plate_number, vehicle_type,
		       start_time, end_time, duration_minutes, subtotal, discount_total,
		       vat_amount, total, discounts, payment_method, paid_at, status
		FROM parking_sessions WHERE id = ?`, id.String()))
	if err == sql.ErrNoRows {
		return nil, fault.NotFoundf("parking session %s", id)
	}
	return s, err
}

func (r *sqliteRepo) ListSpots(ctx context.Context) ([]*Spot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, vehicle_type, occupied, occupied_by FROM parking_spots ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spots []*Spot
	for rows.Next() {
		sp, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		spots = append(spots, sp)
	}
	return spots, rows.Err()
}

func (r *sqliteRepo) GetSpot(ctx context.Context, id uuid.UUID) (*Spot, error) {
	sp, err := scanSpot(r.db.QueryRowContext(ctx, `
		SELECT id, code, vehicle_type, occupied, occupied_by FROM parking_spots WHERE id = ?`, id.String()))
	if err == sql.ErrNoRows {
		return nil, fault.NotFoundf("parking spot %s", id)
	}
	return sp, err
}

// FindAvailableSpot returns nil, nil when nothing compatible is free.
func (r *sqliteRepo) FindAvailableSpot(ctx context.Context, vt VehicleType) (*Spot, error) {
	sp, err := scanSpot(r.db.QueryRowContext(ctx, `
		SELECT id, code, vehicle_type, occupied, occupied_by
		FROM parking_spots WHERE vehicle_type = ? AND occupied = 0
		ORDER BY code LIMIT 1`, string(vt)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sp, err
}

func (r *sqliteRepo) OccupySpot(ctx context.Context, tx *sql.Tx, spotID, sessionID uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE parking_spots SET occupied = 1, occupied_by = ?
		WHERE id = ? AND occupied = 0`,
		sessionID.String(), spotID.String())
	if err != nil {
		return fmt.Errorf("occupy spot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fault.Conflictf("spot %s is not available", spotID)
	}
	return nil
}

func (r *sqliteRepo) FreeSpot(ctx context.Context, tx *sql.Tx, spotID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE parking_spots SET occupied = 0, occupied_by = NULL WHERE id = ?`, spotID.String())
	return err
}

func (r *sqliteRepo) SeedSpots(ctx context.Context, spots []*Spot) error {
	for _, sp := range spots {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO parking_spots (id, code, vehicle_type, occupied, occupied_by)
			VALUES (?,?,?,0,NULL)
			ON CONFLICT (id) DO NOTHING`,
			sp.ID.String(), sp.Code, sp.VehicleType)
		if err != nil {
			return fmt.Errorf("seed spot %s: %w", sp.Code, err)
		}
	}
	return nil
}

// ── scanners ──────────────────────────────────────────────────────────────────

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanSession(row rowScanner) (*Session, error) {
	s := &Session{}
	var id, spotID, shiftID, feeID string
	var endTime, paidAt sql.NullTime
	var discounts sql.NullString
	err := row.Scan(&id, &spotID, &shiftID, &feeID, &s.PlateNumber, &s.VehicleType,
		&s.StartTime, &endTime, &s.DurationMinutes, &s.Subtotal, &s.DiscountTotal,
		&s.VATAmount, &s.Total, &discounts, &s.PaymentMethod, &paidAt, &s.Status)
	if err != nil {
		return nil, err
	}
	s.ID = uuid.MustParse(id)
	s.SpotID = uuid.MustParse(spotID)
	s.ShiftSessionID = uuid.MustParse(shiftID)
	s.FeeEntryID = uuid.MustParse(feeID)
	if endTime.Valid {
		s.EndTime = &endTime.Time
	}
	if paidAt.Valid {
		s.PaidAt = &paidAt.Time
	}
	if discounts.Valid && discounts.String != "" {
		if err := json.Unmarshal([]byte(discounts.String), &s.Discounts); err != nil {
			return nil, fmt.Errorf("unmarshal discounts: %w", err)
		}
	}
	return s, nil
}

func scanSpot(row rowScanner) (*Spot, error) {
	sp := &Spot{}
	var id string
	var occupiedBy sql.NullString
	if err := row.Scan(&id, &sp.Code, &sp.VehicleType, &sp.Occupied, &occupiedBy); err != nil {
		return nil, err
	}
	sp.ID = uuid.MustParse(id)
	if occupiedBy.Valid {
		sid := uuid.MustParse(occupiedBy.String)
		sp.OccupiedBy = &sid
	}
	return sp, nil
}

func marshalDiscounts(discounts []Discount) (interface{}, error) {
	if len(discounts) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(discounts)
	if err != nil {
		return nil, fmt.Errorf("marshal discounts: %w", err)
	}
	return string(raw), nil
}
