package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionGate lets the ledger refuse entries against shifts that are not
// active. Satisfied by the shift service.
type SessionGate interface {
	RequireActive(ctx context.Context, sessionID uuid.UUID) error
}

// Outbox persists a pending sync item inside the caller's local transaction,
// so the optimistic write and its queue record commit together.
type Outbox interface {
	Enqueue(ctx context.Context, tx *sql.Tx, opKind string, recordID uuid.UUID, payload interface{}) error
}

// Service defines ledger business logic. The ledger is the source of truth
// for every cash position; there is deliberately no update or delete.
type Service interface {
	Append(ctx context.Context, e *Entry) (*Entry, error)
	AppendWithTx(ctx context.Context, tx *sql.Tx, e *Entry) error
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID, f Filter) ([]*Entry, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	sessions SessionGate
	outbox   Outbox
	log      *zap.Logger
}

func NewService(db *sql.DB, repo Repository, sessions SessionGate, outbox Outbox, log *zap.Logger) Service {
	return &service{db: db, repo: repo, sessions: sessions, outbox: outbox, log: log.Named("ledger")}
}

// Append commits the entry and its sync-queue record in one local transaction.
func (s *service) Append(ctx context.Context, e *Entry) (*Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.AppendWithTx(ctx, tx, e); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e, nil
}

// AppendWithTx appends inside a caller-owned transaction, for flows that
// commit the entry together with other rows (cash counts, parking sessions).
func (s *service) AppendWithTx(ctx context.Context, tx *sql.Tx, e *Entry) error {
	if err := s.sessions.RequireActive(ctx, e.SessionID); err != nil {
		return err
	}
	if err := s.repo.Insert(ctx, tx, e); err != nil {
		return err
	}
	if err := s.outbox.Enqueue(ctx, tx, OpAppend, e.ID, e); err != nil {
		return fmt.Errorf("enqueue ledger entry: %w", err)
	}
	s.log.Info("ledger entry appended",
		zap.String("entry_id", e.ID.String()),
		zap.String("session_id", e.SessionID.String()),
		zap.String("kind", string(e.Kind)),
		zap.Int64("amount", e.Amount))
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListBySession(ctx context.Context, sessionID uuid.UUID, f Filter) ([]*Entry, error) {
	return s.repo.ListBySession(ctx, sessionID, f)
}
