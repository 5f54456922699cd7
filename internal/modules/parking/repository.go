package parking

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Repository defines local data access for parking sessions and spots. Spot
// occupancy changes are check-and-set updates so that occupying an already
// taken spot fails atomically inside the caller's transaction.
type Repository interface {
	InsertSession(ctx context.Context, tx *sql.Tx, s *Session) error
	UpdateSession(ctx context.Context, tx *sql.Tx, s *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)

	ListSpots(ctx context.Context) ([]*Spot, error)
	GetSpot(ctx context.Context, id uuid.UUID) (*Spot, error)
	FindAvailableSpot(ctx context.Context, vt VehicleType) (*Spot, error)
	OccupySpot(ctx context.Context, tx *sql.Tx, spotID, sessionID uuid.UUID) error
	FreeSpot(ctx context.Context, tx *sql.Tx, spotID uuid.UUID) error

	// SeedSpots inserts the layout on first boot; existing spots are kept.
	SeedSpots(ctx context.Context, spots []*Spot) error
}
