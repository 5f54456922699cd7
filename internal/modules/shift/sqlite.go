package shift

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
)

type sqliteRepo struct{ db *sql.DB }

// NewSQLiteRepository opens the local shift session table. The partial
// unique index is the check-and-set that keeps one active session per
// operator even when two requests race.
func NewSQLiteRepository(db *sql.DB) (Repository, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS shift_sessions (
			id            TEXT PRIMARY KEY,
			operator_id   TEXT NOT NULL,
			location_id   TEXT NOT NULL,
			start_time    TIMESTAMP NOT NULL,
			end_time      TIMESTAMP,
			starting_cash INTEGER NOT NULL,
			ending_cash   INTEGER,
			status        TEXT NOT NULL,
			notes         TEXT NOT NULL DEFAULT ''
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_shift_active_operator
			ON shift_sessions(operator_id) WHERE status = 'ACTIVE';`)
	if err != nil {
		return nil, fmt.Errorf("init shift_sessions: %w", err)
	}
	return &sqliteRepo{db: db}, nil
}

func (r *sqliteRepo) Insert(ctx context.Context, tx *sql.Tx, s *Session) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO shift_sessions
		  (id, operator_id, location_id, start_time, end_time, starting_cash, ending_cash, status, notes)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		s.ID.String(), s.OperatorID, s.LocationID, s.StartTime, s.EndTime,
		s.StartingCash, s.EndingCash, s.Status, s.Notes)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fault.Conflictf("operator %s already has an active shift", s.OperatorID)
	}
	if err != nil {
		return fmt.Errorf("insert shift session: %w", err)
	}
	return nil
}

func (r *sqliteRepo) Update(ctx context.Context, tx *sql.Tx, s *Session) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE shift_sessions
		SET end_time = ?, ending_cash = ?, status = ?, notes = ?
		WHERE id = ?`,
		s.EndTime, s.EndingCash, s.Status, s.Notes, s.ID.String())
	if err != nil {
		return fmt.Errorf("update shift session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fault.NotFoundf("shift session %s", s.ID)
	}
	return nil
}

func (r *sqliteRepo) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `
		SELECT id, operator_id, location_id, start_time, end_time, starting_cash, ending_cash, status, notes
		FROM shift_sessions WHERE id = ?`, id.String()))
	if err == sql.ErrNoRows {
		return nil, fault.NotFoundf("shift session %s", id)
	}
	return s, err
}

// FindActiveByOperator returns nil, nil when the operator has no open shift.
func (r *sqliteRepo) FindActiveByOperator(ctx context.Context, operatorID string) (*Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `
		SELECT id, operator_id, location_id, start_time, end_time, starting_cash, ending_cash, status, notes
		FROM shift_sessions WHERE operator_id = ? AND status = 'ACTIVE'`, operatorID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanSession(row rowScanner) (*Session, error) {
	s := &Session{}
	var id string
	var endTime sql.NullTime
	var endingCash sql.NullInt64
	err := row.Scan(&id, &s.OperatorID, &s.LocationID, &s.StartTime, &endTime,
		&s.StartingCash, &endingCash, &s.Status, &s.Notes)
	if err != nil {
		return nil, err
	}
	s.ID = uuid.MustParse(id)
	if endTime.Valid {
		s.EndTime = &endTime.Time
	}
	if endingCash.Valid {
		s.EndingCash = &endingCash.Int64
	}
	return s, nil
}
