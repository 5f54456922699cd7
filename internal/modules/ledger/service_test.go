package ledger

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
)

// openGate admits every session except the ones it was told to refuse.
type openGate struct{ closed map[uuid.UUID]bool }

func (g *openGate) RequireActive(ctx context.Context, sessionID uuid.UUID) error {
	if g.closed[sessionID] {
		return fault.Conflictf("shift session %s is not active", sessionID)
	}
	return nil
}

type memOutbox struct{ kinds []string }

func (o *memOutbox) Enqueue(ctx context.Context, tx *sql.Tx, opKind string, recordID uuid.UUID, payload interface{}) error {
	o.kinds = append(o.kinds, opKind)
	return nil
}

func newTestService(t *testing.T) (Service, *openGate, *memOutbox) {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewSQLiteRepository(db)
	require.NoError(t, err)

	gate := &openGate{closed: map[uuid.UUID]bool{}}
	outbox := &memOutbox{}
	svc := NewService(db, repo, gate, outbox, zaptest.NewLogger(t))
	return svc, gate, outbox
}

func TestAppend(t *testing.T) {
	svc, _, outbox := newTestService(t)
	ctx := context.Background()
	sessionID := uuid.New()
	parkingID := uuid.New()

	e, err := NewParkingFee(sessionID, parkingID, 5000, 600, MethodCash, "parking ABC-123")
	require.NoError(t, err)

	appended, err := svc.Append(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, SyncPending, appended.SyncState)
	assert.Regexp(t, `^P-[0-9A-F]{8}$`, appended.ProvisionalReceipt)
	assert.Equal(t, []string{OpAppend}, outbox.kinds)

	got, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got.Amount)
	assert.Equal(t, int64(600), got.VATAmount)
	require.NotNil(t, got.ParkingSessionID)
	assert.Equal(t, parkingID, *got.ParkingSessionID)
	assert.Nil(t, got.ConfirmedReceipt)
}

func TestAppend_InactiveSessionRefused(t *testing.T) {
	svc, gate, outbox := newTestService(t)
	sessionID := uuid.New()
	gate.closed[sessionID] = true

	e, err := NewCashAdjustment(sessionID, 500, "found a bill under the till")
	require.NoError(t, err)

	_, err = svc.Append(context.Background(), e)
	assert.ErrorIs(t, err, fault.ErrConflict)
	assert.Empty(t, outbox.kinds)

	_, err = svc.Get(context.Background(), e.ID)
	assert.ErrorIs(t, err, fault.ErrNotFound, "refused entry must not be persisted")
}

func TestConstructorsEnforceSigns(t *testing.T) {
	sessionID := uuid.New()

	_, err := NewParkingFee(sessionID, uuid.New(), 0, 0, MethodCash, "x")
	assert.ErrorIs(t, err, fault.ErrValidation)

	_, err = NewCashAdjustment(sessionID, 0, "reason")
	assert.ErrorIs(t, err, fault.ErrValidation)
	_, err = NewCashAdjustment(sessionID, 500, "   ")
	assert.ErrorIs(t, err, fault.ErrValidation)

	// Refund takes the positive refunded value and stores it negated.
	r, err := NewRefund(sessionID, nil, 1200, MethodCash, "overcharged")
	require.NoError(t, err)
	assert.Equal(t, int64(-1200), r.Amount)
	_, err = NewRefund(sessionID, nil, -1200, MethodCash, "overcharged")
	assert.ErrorIs(t, err, fault.ErrValidation)

	d, err := NewDiscountEntry(sessionID, 800, MethodCash, "senior")
	require.NoError(t, err)
	assert.Equal(t, int64(-800), d.Amount)
}

func TestListBySession_Filter(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	sessionID := uuid.New()
	other := uuid.New()

	fee, err := NewParkingFee(sessionID, uuid.New(), 5600, 600, MethodCash, "parking")
	require.NoError(t, err)
	card, err := NewParkingFee(sessionID, uuid.New(), 5600, 600, MethodCard, "parking")
	require.NoError(t, err)
	adj, err := NewCashAdjustment(sessionID, -2000, "safe drop")
	require.NoError(t, err)
	foreign, err := NewCashAdjustment(other, 100, "other shift")
	require.NoError(t, err)

	for _, e := range []*Entry{fee, card, adj, foreign} {
		_, err := svc.Append(ctx, e)
		require.NoError(t, err)
	}

	all, err := svc.ListBySession(ctx, sessionID, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	fees, err := svc.ListBySession(ctx, sessionID, Filter{Kind: KindParkingFee})
	require.NoError(t, err)
	assert.Len(t, fees, 2)

	cash, err := svc.ListBySession(ctx, sessionID, Filter{Kind: KindParkingFee, Method: MethodCash})
	require.NoError(t, err)
	require.Len(t, cash, 1)
	assert.Equal(t, fee.ID, cash[0].ID)
}
