package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
	"github.com/rgbautista/parkpoint-backend/internal/modules/drawer"
	"github.com/rgbautista/parkpoint-backend/internal/modules/ledger"
	"github.com/rgbautista/parkpoint-backend/internal/modules/shift"
)

// Outbox persists a pending sync item inside the caller's local transaction.
type Outbox interface {
	Enqueue(ctx context.Context, tx *sql.Tx, opKind string, recordID uuid.UUID, payload interface{}) error
}

// Service derives cash positions from the ledger and performs counts,
// adjustments and deposits.
type Service interface {
	Summary(ctx context.Context, sessionID uuid.UUID) (*Summary, error)
	PerformCount(ctx context.Context, sessionID uuid.UUID, operatorID string, req CountRequest) (*CountResult, error)
	MakeAdjustment(ctx context.Context, sessionID uuid.UUID, operatorID string, req AdjustRequest) (*ledger.Entry, error)
	RecordDeposit(ctx context.Context, sessionID uuid.UUID, operatorID string, req DepositRequest) (*ledger.Entry, error)
}

type service struct {
	db         *sql.DB
	shiftRepo  shift.Repository
	entries    ledger.Service
	drawerRepo drawer.Repository
	outbox     Outbox
	tolerance  int64
	log        *zap.Logger
}

func NewService(db *sql.DB, shiftRepo shift.Repository, entries ledger.Service, drawerRepo drawer.Repository, outbox Outbox, tolerance int64, log *zap.Logger) Service {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &service{
		db:         db,
		shiftRepo:  shiftRepo,
		entries:    entries,
		drawerRepo: drawerRepo,
		outbox:     outbox,
		tolerance:  tolerance,
		log:        log.Named("reconcile"),
	}
}

// Summary recomputes the cash position from the full ledger. Cash-method
// entries partition into sales (fees and refunds), positive adjustments and
// deposits (negative adjustments, reported as a positive removed amount).
func (s *service) Summary(ctx context.Context, sessionID uuid.UUID) (*Summary, error) {
	sess, err := s.shiftRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.ListBySession(ctx, sessionID, ledger.Filter{Method: ledger.MethodCash})
	if err != nil {
		return nil, err
	}

	sum := &Summary{SessionID: sessionID, StartingCash: sess.StartingCash}
	for _, e := range entries {
		switch e.Kind {
		case ledger.KindCashAdjustment:
			if e.Amount > 0 {
				sum.CashAdjustments += e.Amount
			} else {
				sum.CashDeposits += -e.Amount
			}
		default:
			// Fees positive, refunds and discounts negative.
			sum.CashSales += e.Amount
		}
	}
	sum.ExpectedCash = sum.StartingCash + sum.CashSales + sum.CashAdjustments - sum.CashDeposits

	if count, err := s.drawerRepo.LatestCount(ctx, sessionID); err != nil {
		return nil, err
	} else if count != nil && count.Amount != nil {
		actual := *count.Amount
		diff := actual - sum.ExpectedCash
		sum.ActualCash = &actual
		sum.Difference = &diff
	}
	return sum, nil
}

// PerformCount compares a physical denomination count against the expected
// cash. Outside the tolerance it appends a compensating adjustment equal to
// the signed variance, so the next Summary reports expected == counted. The
// COUNT audit op is recorded with the full breakdown either way.
func (s *service) PerformCount(ctx context.Context, sessionID uuid.UUID, operatorID string, req CountRequest) (*CountResult, error) {
	if len(req.Denominations) == 0 {
		return nil, fault.Validationf("denomination breakdown is required")
	}
	for face, count := range req.Denominations {
		if face <= 0 || count < 0 {
			return nil, fault.Validationf("invalid denomination %d x %d", face, count)
		}
	}

	summary, err := s.Summary(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	total := req.Denominations.Total()
	variance := total - summary.ExpectedCash
	result := &CountResult{
		SessionID:       sessionID,
		ExpectedCash:    summary.ExpectedCash,
		CountedCash:     total,
		Variance:        variance,
		WithinTolerance: abs(variance) <= s.tolerance,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if !result.WithinTolerance {
		reason := fmt.Sprintf("cash count variance: counted %d, expected %d", total, summary.ExpectedCash)
		adj, err := ledger.NewCashAdjustment(sessionID, variance, reason)
		if err != nil {
			return nil, err
		}
		if err := s.entries.AppendWithTx(ctx, tx, adj); err != nil {
			return nil, err
		}
		result.Adjustment = adj
	}

	op := drawer.NewOperation(sessionID, drawer.OpCount, operatorID)
	op.Amount = &total
	op.Breakdown = req.Denominations
	op.Reason = req.Notes
	if err := s.drawerRepo.Insert(ctx, tx, op); err != nil {
		return nil, err
	}
	if err := s.outbox.Enqueue(ctx, tx, drawer.OpAppend, op.ID, op); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.log.Info("cash count performed",
		zap.String("session_id", sessionID.String()),
		zap.Int64("counted", total),
		zap.Int64("expected", summary.ExpectedCash),
		zap.Int64("variance", variance),
		zap.Bool("within_tolerance", result.WithinTolerance))
	return result, nil
}

// MakeAdjustment appends a signed manual correction plus its audit op.
func (s *service) MakeAdjustment(ctx context.Context, sessionID uuid.UUID, operatorID string, req AdjustRequest) (*ledger.Entry, error) {
	if req.Amount <= 0 {
		return nil, fault.Validationf("adjustment amount must be positive")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, fault.Validationf("adjustment reason is required")
	}
	amount := req.Amount
	switch req.Direction {
	case DirectionAdd:
	case DirectionRemove:
		amount = -amount
	default:
		return nil, fault.Validationf("direction must be ADD or REMOVE")
	}

	entry, err := ledger.NewCashAdjustment(sessionID, amount, req.Reason)
	if err != nil {
		return nil, err
	}
	op := drawer.NewOperation(sessionID, drawer.OpAdjustment, operatorID)
	op.Amount = &amount
	op.Reason = req.Reason

	if err := s.commitEntryAndOp(ctx, entry, op); err != nil {
		return nil, err
	}
	s.log.Info("cash adjustment",
		zap.String("session_id", sessionID.String()),
		zap.Int64("amount", amount),
		zap.String("reason", req.Reason))
	return entry, nil
}

// RecordDeposit removes cash from the drawer into a safe or bank drop. The
// ledger entry is negative; the summary reports it as a positive removed
// amount.
func (s *service) RecordDeposit(ctx context.Context, sessionID uuid.UUID, operatorID string, req DepositRequest) (*ledger.Entry, error) {
	if req.Amount <= 0 {
		return nil, fault.Validationf("deposit amount must be positive")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, fault.Validationf("deposit reason is required")
	}
	if req.Method == "" {
		req.Method = "SAFE_DROP"
	}

	entry, err := ledger.NewCashAdjustment(sessionID, -req.Amount, req.Reason)
	if err != nil {
		return nil, err
	}
	amount := req.Amount
	op := drawer.NewOperation(sessionID, drawer.OpDeposit, operatorID)
	op.Amount = &amount
	op.Reason = fmt.Sprintf("%s (%s)", req.Reason, req.Method)

	if err := s.commitEntryAndOp(ctx, entry, op); err != nil {
		return nil, err
	}
	s.log.Info("cash deposit",
		zap.String("session_id", sessionID.String()),
		zap.Int64("amount", req.Amount),
		zap.String("method", req.Method))
	return entry, nil
}

func (s *service) commitEntryAndOp(ctx context.Context, entry *ledger.Entry, op *drawer.Operation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.entries.AppendWithTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := s.drawerRepo.Insert(ctx, tx, op); err != nil {
		return err
	}
	if err := s.outbox.Enqueue(ctx, tx, drawer.OpAppend, op.ID, op); err != nil {
		return err
	}
	return tx.Commit()
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
