package drawer

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Repository defines local data access for drawer operations. Append and
// list only: the audit trail is as immutable as the ledger.
type Repository interface {
	Insert(ctx context.Context, tx *sql.Tx, op *Operation) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*Operation, error)
	LatestCount(ctx context.Context, sessionID uuid.UUID) (*Operation, error)
}
