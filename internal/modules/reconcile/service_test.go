package reconcile

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
	"github.com/rgbautista/parkpoint-backend/internal/modules/drawer"
	"github.com/rgbautista/parkpoint-backend/internal/modules/ledger"
	"github.com/rgbautista/parkpoint-backend/internal/modules/peripheral"
	"github.com/rgbautista/parkpoint-backend/internal/modules/shift"
)

type memOutbox struct{}

func (memOutbox) Enqueue(ctx context.Context, tx *sql.Tx, opKind string, recordID uuid.UUID, payload interface{}) error {
	return nil
}

type fixture struct {
	svc     Service
	shifts  shift.Service
	entries ledger.Service
}

func newFixture(t *testing.T, tolerance int64) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	shiftRepo, err := shift.NewSQLiteRepository(db)
	require.NoError(t, err)
	drawerRepo, err := drawer.NewSQLiteRepository(db)
	require.NoError(t, err)
	ledgerRepo, err := ledger.NewSQLiteRepository(db)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	outbox := memOutbox{}
	shifts := shift.NewService(db, shiftRepo, drawerRepo, outbox, peripheral.NewLogPeripherals(log), log)
	entries := ledger.NewService(db, ledgerRepo, shifts, outbox, log)
	svc := NewService(db, shiftRepo, entries, drawerRepo, outbox, tolerance, log)
	return &fixture{svc: svc, shifts: shifts, entries: entries}
}

func (f *fixture) startShift(t *testing.T, startingCash int64) uuid.UUID {
	t.Helper()
	sess, err := f.shifts.Start(context.Background(), "op-1", shift.StartRequest{
		LocationID:  "lot-a",
		CurrentCash: startingCash,
	})
	require.NoError(t, err)
	return sess.ID
}

func (f *fixture) appendCashFee(t *testing.T, sessionID uuid.UUID, amount, vat int64) {
	t.Helper()
	e, err := ledger.NewParkingFee(sessionID, uuid.New(), amount, vat, ledger.MethodCash, "parking fee")
	require.NoError(t, err)
	_, err = f.entries.Append(context.Background(), e)
	require.NoError(t, err)
}

func TestSummary_ExpectedCash(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	sessionID := f.startShift(t, 100000)

	f.appendCashFee(t, sessionID, 5600, 600)

	// Card entries never move drawer cash.
	card, err := ledger.NewParkingFee(sessionID, uuid.New(), 11200, 1200, ledger.MethodCard, "parking fee")
	require.NoError(t, err)
	_, err = f.entries.Append(ctx, card)
	require.NoError(t, err)

	_, err = f.svc.MakeAdjustment(ctx, sessionID, "op-1", AdjustRequest{Amount: 500, Reason: "found bill", Direction: DirectionAdd})
	require.NoError(t, err)
	_, err = f.svc.RecordDeposit(ctx, sessionID, "op-1", DepositRequest{Amount: 20000, Reason: "mid-shift drop"})
	require.NoError(t, err)

	sum, err := f.svc.Summary(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), sum.StartingCash)
	assert.Equal(t, int64(5600), sum.CashSales)
	assert.Equal(t, int64(500), sum.CashAdjustments)
	assert.Equal(t, int64(20000), sum.CashDeposits)
	assert.Equal(t, int64(100000+5600+500-20000), sum.ExpectedCash)
	assert.Nil(t, sum.ActualCash, "no count performed yet")
}

func TestPerformCount_VarianceCompensated(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	sessionID := f.startShift(t, 100000)
	f.appendCashFee(t, sessionID, 5000, 0)

	// Counted 105600 against an expected 105000.
	res, err := f.svc.PerformCount(ctx, sessionID, "op-1", CountRequest{
		Denominations: drawer.Breakdown{100000: 1, 5000: 1, 500: 1, 100: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(105000), res.ExpectedCash)
	assert.Equal(t, int64(105600), res.CountedCash)
	assert.Equal(t, int64(600), res.Variance)
	assert.False(t, res.WithinTolerance)
	require.NotNil(t, res.Adjustment)
	assert.Equal(t, ledger.KindCashAdjustment, res.Adjustment.Kind)
	assert.Equal(t, int64(600), res.Adjustment.Amount)

	// The compensating entry folds into the next summary: the books now
	// agree with the drawer.
	sum, err := f.svc.Summary(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(105600), sum.ExpectedCash)
	require.NotNil(t, sum.ActualCash)
	assert.Equal(t, int64(105600), *sum.ActualCash)
	require.NotNil(t, sum.Difference)
	assert.Equal(t, int64(0), *sum.Difference)
}

func TestPerformCount_WithinTolerance(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	sessionID := f.startShift(t, 100000)

	res, err := f.svc.PerformCount(ctx, sessionID, "op-1", CountRequest{
		Denominations: drawer.Breakdown{50000: 2, 50: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.Variance)
	assert.True(t, res.WithinTolerance)
	assert.Nil(t, res.Adjustment, "small variances are recorded, not compensated")

	entries, err := f.entries.ListBySession(ctx, sessionID, ledger.Filter{Kind: ledger.KindCashAdjustment})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPerformCount_Shortage(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	sessionID := f.startShift(t, 100000)

	res, err := f.svc.PerformCount(ctx, sessionID, "op-1", CountRequest{
		Denominations: drawer.Breakdown{50000: 1, 20000: 2, 5000: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-5000), res.Variance)
	require.NotNil(t, res.Adjustment)
	assert.Equal(t, int64(-5000), res.Adjustment.Amount)
}

func TestPerformCount_InvalidDenominations(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	sessionID := f.startShift(t, 100000)

	_, err := f.svc.PerformCount(ctx, sessionID, "op-1", CountRequest{})
	assert.ErrorIs(t, err, fault.ErrValidation)

	_, err = f.svc.PerformCount(ctx, sessionID, "op-1", CountRequest{
		Denominations: drawer.Breakdown{-100: 1},
	})
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestMakeAdjustment_Validation(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	sessionID := f.startShift(t, 100000)

	_, err := f.svc.MakeAdjustment(ctx, sessionID, "op-1", AdjustRequest{Amount: 500, Direction: DirectionAdd})
	assert.ErrorIs(t, err, fault.ErrValidation, "reason is mandatory")

	_, err = f.svc.MakeAdjustment(ctx, sessionID, "op-1", AdjustRequest{Amount: -500, Reason: "x", Direction: DirectionAdd})
	assert.ErrorIs(t, err, fault.ErrValidation)

	_, err = f.svc.MakeAdjustment(ctx, sessionID, "op-1", AdjustRequest{Amount: 500, Reason: "x", Direction: "SIDEWAYS"})
	assert.ErrorIs(t, err, fault.ErrValidation)

	entry, err := f.svc.MakeAdjustment(ctx, sessionID, "op-1", AdjustRequest{Amount: 500, Reason: "register error", Direction: DirectionRemove})
	require.NoError(t, err)
	assert.Equal(t, int64(-500), entry.Amount)
}

func TestReconcileOnClosedShiftRefused(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	sessionID := f.startShift(t, 100000)

	_, err := f.shifts.End(ctx, sessionID, "op-1", shift.EndRequest{EndCash: 100000})
	require.NoError(t, err)

	_, err = f.svc.MakeAdjustment(ctx, sessionID, "op-1", AdjustRequest{Amount: 500, Reason: "late fix", Direction: DirectionAdd})
	assert.ErrorIs(t, err, fault.ErrConflict)
}
