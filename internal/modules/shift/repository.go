package shift

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Repository defines local data access for shift sessions.
type Repository interface {
	Insert(ctx context.Context, tx *sql.Tx, s *Session) error
	Update(ctx context.Context, tx *sql.Tx, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	FindActiveByOperator(ctx context.Context, operatorID string) (*Session, error)
}
