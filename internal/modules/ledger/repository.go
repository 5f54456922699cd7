package ledger

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Repository defines local data access for ledger entries. There is no update
// or delete: the ledger is append-only, and the only mutation after insert is
// the sync acknowledgment writing back the confirmed receipt number.
type Repository interface {
	Insert(ctx context.Context, tx *sql.Tx, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID, f Filter) ([]*Entry, error)
	ConfirmSync(ctx context.Context, id uuid.UUID, confirmedReceipt string) error
}
