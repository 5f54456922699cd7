package shift

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
	"github.com/rgbautista/parkpoint-backend/internal/modules/drawer"
	"github.com/rgbautista/parkpoint-backend/internal/modules/peripheral"
)

type queuedItem struct {
	Kind     string
	RecordID uuid.UUID
}

// memOutbox stands in for the sync queue; the durable store has its own
// tests.
type memOutbox struct{ items []queuedItem }

func (o *memOutbox) Enqueue(ctx context.Context, tx *sql.Tx, opKind string, recordID uuid.UUID, payload interface{}) error {
	o.items = append(o.items, queuedItem{Kind: opKind, RecordID: recordID})
	return nil
}

func newTestService(t *testing.T) (Service, drawer.Repository, *memOutbox) {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewSQLiteRepository(db)
	require.NoError(t, err)
	drawerRepo, err := drawer.NewSQLiteRepository(db)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	outbox := &memOutbox{}
	svc := NewService(db, repo, drawerRepo, outbox, peripheral.NewLogPeripherals(log), log)
	return svc, drawerRepo, outbox
}

func TestStart(t *testing.T) {
	svc, drawerRepo, outbox := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx, "op-1", StartRequest{LocationID: "lot-a", PreviousCash: 100000, CurrentCash: 100000})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, sess.Status)
	assert.Equal(t, int64(100000), sess.StartingCash)

	// Drawer OPEN op recorded with the verified cash.
	ops, err := drawerRepo.ListBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, drawer.OpOpen, ops[0].Kind)
	require.NotNil(t, ops[0].Amount)
	assert.Equal(t, int64(100000), *ops[0].Amount)

	// Session upsert enqueued before its drawer op.
	require.Len(t, outbox.items, 2)
	assert.Equal(t, OpUpsert, outbox.items[0].Kind)
	assert.Equal(t, sess.ID, outbox.items[0].RecordID)
	assert.Equal(t, drawer.OpAppend, outbox.items[1].Kind)
}

func TestStart_CashShortRejected(t *testing.T) {
	svc, _, outbox := newTestService(t)

	// The drawer holds less than the previous shift handed over.
	_, err := svc.Start(context.Background(), "op-1", StartRequest{LocationID: "lot-a", PreviousCash: 100000, CurrentCash: 90000})
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrValidation)
	assert.Empty(t, outbox.items, "no write may happen before validation passes")
}

func TestStart_SecondActiveShiftConflicts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Start(ctx, "op-1", StartRequest{LocationID: "lot-a", PreviousCash: 0, CurrentCash: 50000})
	require.NoError(t, err)

	_, err = svc.Start(ctx, "op-1", StartRequest{LocationID: "lot-a", PreviousCash: 0, CurrentCash: 50000})
	assert.ErrorIs(t, err, fault.ErrConflict)

	// A different operator is unaffected.
	_, err = svc.Start(ctx, "op-2", StartRequest{LocationID: "lot-a", PreviousCash: 0, CurrentCash: 50000})
	assert.NoError(t, err)
}

func TestInsert_OneActivePerOperatorAtTheStore(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo, err := NewSQLiteRepository(db)
	require.NoError(t, err)
	ctx := context.Background()

	insert := func(s *Session) error {
		tx, err := db.Begin()
		require.NoError(t, err)
		defer tx.Rollback()
		if err := repo.Insert(ctx, tx, s); err != nil {
			return err
		}
		return tx.Commit()
	}
	session := func(operator string, status Status) *Session {
		return &Session{
			ID:         uuid.New(),
			OperatorID: operator,
			LocationID: "lot-a",
			StartTime:  time.Now().UTC(),
			Status:     status,
		}
	}

	require.NoError(t, insert(session("op-1", StatusActive)))

	// Two devices racing past the service pre-check: the partial unique
	// index is the arbiter and the loser gets a conflict, not a dirty row.
	err = insert(session("op-1", StatusActive))
	assert.ErrorIs(t, err, fault.ErrConflict)

	// Terminal rows and other operators are outside the index.
	assert.NoError(t, insert(session("op-1", StatusCompleted)))
	assert.NoError(t, insert(session("op-2", StatusActive)))
}

func TestEnd(t *testing.T) {
	svc, drawerRepo, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx, "op-1", StartRequest{LocationID: "lot-a", PreviousCash: 0, CurrentCash: 50000})
	require.NoError(t, err)

	ended, err := svc.End(ctx, sess.ID, "op-1", EndRequest{EndCash: 72500})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, ended.Status)
	require.NotNil(t, ended.EndingCash)
	assert.Equal(t, int64(72500), *ended.EndingCash)
	require.NotNil(t, ended.EndTime)

	ops, err := drawerRepo.ListBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, drawer.OpClose, ops[1].Kind)

	// Terminal sessions are immutable: no further transition is possible.
	_, err = svc.End(ctx, sess.ID, "op-1", EndRequest{EndCash: 0})
	assert.ErrorIs(t, err, fault.ErrNotFound)
	assert.ErrorIs(t, svc.RequireActive(ctx, sess.ID), fault.ErrConflict)

	// The operator can start a fresh shift afterwards.
	_, err = svc.Start(ctx, "op-1", StartRequest{LocationID: "lot-a", PreviousCash: 0, CurrentCash: 72500})
	assert.NoError(t, err)
}

func TestEnd_NotOwnedLooksNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx, "op-1", StartRequest{LocationID: "lot-a", PreviousCash: 0, CurrentCash: 50000})
	require.NoError(t, err)

	_, err = svc.End(ctx, sess.ID, "op-2", EndRequest{EndCash: 50000})
	assert.ErrorIs(t, err, fault.ErrNotFound)
}

func TestCancel(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx, "op-1", StartRequest{LocationID: "lot-a", PreviousCash: 0, CurrentCash: 50000})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, sess.ID, "op-1", CancelRequest{})
	assert.ErrorIs(t, err, fault.ErrValidation)

	cancelled, err := svc.Cancel(ctx, sess.ID, "op-1", CancelRequest{Reason: "drawer jammed"})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestActive(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Active(ctx, "op-1")
	assert.ErrorIs(t, err, fault.ErrNotFound)

	sess, err := svc.Start(ctx, "op-1", StartRequest{LocationID: "lot-a", PreviousCash: 0, CurrentCash: 50000})
	require.NoError(t, err)

	active, err := svc.Active(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, active.ID)
}
