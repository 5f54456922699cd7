package syncqueue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rgbautista/parkpoint-backend/internal/modules/drawer"
	"github.com/rgbautista/parkpoint-backend/internal/modules/ledger"
	"github.com/rgbautista/parkpoint-backend/internal/modules/parking"
	"github.com/rgbautista/parkpoint-backend/internal/modules/shift"
)

type fakeRemoteShift struct{ got *shift.Session }

func (f *fakeRemoteShift) Upsert(ctx context.Context, s *shift.Session) error {
	f.got = s
	return nil
}

type fakeRemoteDrawer struct{ got *drawer.Operation }

func (f *fakeRemoteDrawer) Upsert(ctx context.Context, op *drawer.Operation) error {
	f.got = op
	return nil
}

type fakeRemoteLedger struct {
	got     *ledger.Entry
	receipt string
}

func (f *fakeRemoteLedger) Upsert(ctx context.Context, e *ledger.Entry) (string, error) {
	f.got = e
	return f.receipt, nil
}

type fakeRemoteParking struct{ got *parking.Session }

func (f *fakeRemoteParking) Apply(ctx context.Context, s *parking.Session) error {
	f.got = s
	return nil
}

type fakeConfirmer struct {
	id      uuid.UUID
	receipt string
}

func (f *fakeConfirmer) ConfirmSync(ctx context.Context, id uuid.UUID, receipt string) error {
	f.id = id
	f.receipt = receipt
	return nil
}

func item(t *testing.T, kind string, payload interface{}) *Item {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &Item{Kind: kind, Payload: raw}
}

func newApplier(t *testing.T) (*StoreApplier, *fakeRemoteShift, *fakeRemoteDrawer, *fakeRemoteLedger, *fakeRemoteParking, *fakeConfirmer) {
	shifts := &fakeRemoteShift{}
	drawers := &fakeRemoteDrawer{}
	entries := &fakeRemoteLedger{receipt: "OR-000123"}
	parkingRepo := &fakeRemoteParking{}
	confirmer := &fakeConfirmer{}
	a := NewStoreApplier(shifts, drawers, entries, parkingRepo, confirmer, zaptest.NewLogger(t))
	return a, shifts, drawers, entries, parkingRepo, confirmer
}

func TestApply_DispatchesByKind(t *testing.T) {
	a, shifts, drawers, _, parkingRepo, _ := newApplier(t)
	ctx := context.Background()

	sess := &shift.Session{ID: uuid.New(), OperatorID: "op-1", Status: shift.StatusActive, StartTime: time.Now().UTC()}
	require.NoError(t, a.Apply(ctx, item(t, shift.OpUpsert, sess)))
	require.NotNil(t, shifts.got)
	assert.Equal(t, sess.ID, shifts.got.ID)

	op := drawer.NewOperation(sess.ID, drawer.OpOpen, "op-1")
	require.NoError(t, a.Apply(ctx, item(t, drawer.OpAppend, op)))
	require.NotNil(t, drawers.got)
	assert.Equal(t, op.ID, drawers.got.ID)

	pk := &parking.Session{ID: uuid.New(), PlateNumber: "ABC-123", Status: parking.StatusActive}
	require.NoError(t, a.Apply(ctx, item(t, parking.OpUpsert, pk)))
	require.NotNil(t, parkingRepo.got)
	assert.Equal(t, pk.ID, parkingRepo.got.ID)

	err := a.Apply(ctx, item(t, "unknown.kind", map[string]string{}))
	assert.Error(t, err)
}

func TestApply_LedgerConfirmsReceipt(t *testing.T) {
	a, _, _, entries, _, confirmer := newApplier(t)

	e, err := ledger.NewParkingFee(uuid.New(), uuid.New(), 5600, 600, ledger.MethodCash, "parking")
	require.NoError(t, err)

	require.NoError(t, a.Apply(context.Background(), item(t, ledger.OpAppend, e)))
	require.NotNil(t, entries.got)
	assert.Equal(t, e.ID, entries.got.ID)

	// The store-assigned receipt number flows back onto the local entry.
	assert.Equal(t, e.ID, confirmer.id)
	assert.Equal(t, "OR-000123", confirmer.receipt)
}

// dedupingLedger mimics the store-side upsert: one row per id, and the
// receipt assigned on first insert is returned on every redelivery.
type dedupingLedger struct {
	rows     map[uuid.UUID]string
	sequence int
}

func (d *dedupingLedger) Upsert(ctx context.Context, e *ledger.Entry) (string, error) {
	if receipt, ok := d.rows[e.ID]; ok {
		return receipt, nil
	}
	d.sequence++
	receipt := "OR-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(d.sequence)}).String()[:8]
	d.rows[e.ID] = receipt
	return receipt, nil
}

func TestApply_RedeliveryIsIdempotent(t *testing.T) {
	remote := &dedupingLedger{rows: map[uuid.UUID]string{}}
	confirmer := &fakeConfirmer{}
	a := NewStoreApplier(&fakeRemoteShift{}, &fakeRemoteDrawer{}, remote, &fakeRemoteParking{}, confirmer, zaptest.NewLogger(t))

	e, err := ledger.NewParkingFee(uuid.New(), uuid.New(), 5600, 600, ledger.MethodCash, "parking")
	require.NoError(t, err)
	it := item(t, ledger.OpAppend, e)

	// Redelivery after a lost acknowledgment runs the same item again.
	require.NoError(t, a.Apply(context.Background(), it))
	first := confirmer.receipt
	require.NoError(t, a.Apply(context.Background(), it))

	assert.Len(t, remote.rows, 1, "redelivery must not duplicate the entry")
	assert.Equal(t, first, confirmer.receipt, "the confirmed receipt is stable across redelivery")
}

func TestApply_MalformedPayload(t *testing.T) {
	a, _, _, _, _, _ := newApplier(t)
	err := a.Apply(context.Background(), &Item{Kind: shift.OpUpsert, Payload: []byte("{nope")})
	assert.Error(t, err)
}
