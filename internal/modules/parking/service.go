package parking

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
	"github.com/rgbautista/parkpoint-backend/internal/modules/ledger"
	"github.com/rgbautista/parkpoint-backend/internal/modules/peripheral"
	"github.com/rgbautista/parkpoint-backend/internal/modules/shift"
)

// Outbox persists a pending sync item inside the caller's local transaction.
type Outbox interface {
	Enqueue(ctx context.Context, tx *sql.Tx, opKind string, recordID uuid.UUID, payload interface{}) error
}

// Service owns the parking session lifecycle and the pricing that feeds the
// ledger.
type Service interface {
	Create(ctx context.Context, operatorID string, req CreateRequest) (*Session, error)
	Pay(ctx context.Context, sessionID uuid.UUID, operatorID string, req PayRequest) (*PaymentResult, error)
	Reassign(ctx context.Context, sessionID uuid.UUID, operatorID string, req ReassignRequest) (*Session, error)
	Terminate(ctx context.Context, sessionID uuid.UUID, operatorID string, req TerminateRequest) (*Session, error)
	Get(ctx context.Context, sessionID uuid.UUID) (*Session, error)
	Spots(ctx context.Context) ([]*Spot, error)
}

type service struct {
	db          *sql.DB
	repo        Repository
	shifts      shift.Service
	entries     ledger.Service
	outbox      Outbox
	peripherals peripheral.Peripherals
	rates       map[VehicleType]int64
	discounts   map[string]Discount
	log         *zap.Logger
}

func NewService(db *sql.DB, repo Repository, shifts shift.Service, entries ledger.Service, outbox Outbox, peripherals peripheral.Peripherals, rates map[VehicleType]int64, discounts map[string]Discount, log *zap.Logger) Service {
	if rates == nil {
		rates = DefaultHourlyRates
	}
	if discounts == nil {
		discounts = DefaultDiscounts
	}
	return &service{
		db:          db,
		repo:        repo,
		shifts:      shifts,
		entries:     entries,
		outbox:      outbox,
		peripherals: peripherals,
		rates:       rates,
		discounts:   discounts,
		log:         log.Named("parking"),
	}
}

// Create prices the stay, reserves a compatible spot and appends the
// parking_fee ledger entry. Spot occupancy, session insert and ledger entry
// commit in one local transaction so no partial state is ever observable.
func (s *service) Create(ctx context.Context, operatorID string, req CreateRequest) (*Session, error) {
	if strings.TrimSpace(req.PlateNumber) == "" {
		return nil, fault.Validationf("plate_number is required")
	}
	if req.DurationMinutes <= 0 {
		return nil, fault.Validationf("duration_minutes must be positive")
	}
	rate, ok := s.rates[req.VehicleType]
	if !ok {
		return nil, fault.Validationf("unknown vehicle type %q", req.VehicleType)
	}
	switch req.PaymentMethod {
	case ledger.MethodCash, ledger.MethodCard, ledger.MethodDigitalWallet:
	default:
		return nil, fault.Validationf("invalid payment method %q", req.PaymentMethod)
	}

	var applied []Discount
	for _, code := range req.Discounts {
		d, ok := s.discounts[strings.ToUpper(code)]
		if !ok {
			return nil, fault.Validationf("unknown discount %q", code)
		}
		applied = append(applied, d)
	}

	shiftSess, err := s.shifts.Active(ctx, operatorID)
	if err != nil {
		return nil, err
	}

	spot, err := s.repo.FindAvailableSpot(ctx, req.VehicleType)
	if err != nil {
		return nil, err
	}
	if spot == nil {
		return nil, fault.Conflictf("no available spot for vehicle type %s", req.VehicleType)
	}

	pricing := computePricing(rate, req.DurationMinutes, applied)
	sess := &Session{
		ID:              uuid.New(),
		SpotID:          spot.ID,
		ShiftSessionID:  shiftSess.ID,
		PlateNumber:     strings.ToUpper(strings.TrimSpace(req.PlateNumber)),
		VehicleType:     req.VehicleType,
		StartTime:       time.Now().UTC(),
		DurationMinutes: req.DurationMinutes,
		Subtotal:        pricing.Subtotal,
		DiscountTotal:   pricing.DiscountTotal,
		VATAmount:       pricing.VATAmount,
		Total:           pricing.Total,
		Discounts:       applied,
		PaymentMethod:   req.PaymentMethod,
		Status:          StatusActive,
	}

	fee, err := ledger.NewParkingFee(shiftSess.ID, sess.ID, pricing.Total, pricing.VATAmount,
		req.PaymentMethod, fmt.Sprintf("parking fee %s spot %s", sess.PlateNumber, spot.Code))
	if err != nil {
		return nil, err
	}
	sess.FeeEntryID = fee.ID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.repo.OccupySpot(ctx, tx, spot.ID, sess.ID); err != nil {
		return nil, err
	}
	if err := s.repo.InsertSession(ctx, tx, sess); err != nil {
		return nil, err
	}
	if err := s.outbox.Enqueue(ctx, tx, OpUpsert, sess.ID, sess); err != nil {
		return nil, err
	}
	if err := s.entries.AppendWithTx(ctx, tx, fee); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.log.Info("parking session created",
		zap.String("session_id", sess.ID.String()),
		zap.String("plate", sess.PlateNumber),
		zap.String("spot", spot.Code),
		zap.Int64("total", sess.Total))
	return sess, nil
}

// Pay settles the session. Cash must cover the total; settling twice is a
// conflict. The method is fixed at creation: the fee entry already carries
// it, and changing it here would desynchronize the cash summary.
func (s *service) Pay(ctx context.Context, sessionID uuid.UUID, operatorID string, req PayRequest) (*PaymentResult, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.PaidAt != nil {
		return nil, fault.Conflictf("parking session %s is already settled", sessionID)
	}
	if sess.Status == StatusCancelled {
		return nil, fault.Conflictf("parking session %s is cancelled", sessionID)
	}
	switch req.Method {
	case ledger.MethodCash, ledger.MethodCard, ledger.MethodDigitalWallet:
	default:
		return nil, fault.Validationf("invalid payment method %q", req.Method)
	}
	if req.Method != sess.PaymentMethod {
		return nil, fault.Validationf("parking session %s was created for %s settlement, got %s",
			sessionID, sess.PaymentMethod, req.Method)
	}

	result := &PaymentResult{SessionID: sessionID, Method: req.Method, Total: sess.Total}
	if req.Method == ledger.MethodCash {
		if req.CashReceived == nil {
			return nil, fault.Validationf("cash_received is required for cash payment")
		}
		if *req.CashReceived < sess.Total {
			return nil, fault.Validationf("cash received %d is less than total %d", *req.CashReceived, sess.Total)
		}
		change := *req.CashReceived - sess.Total
		result.CashReceived = req.CashReceived
		result.Change = &change
	}

	now := time.Now().UTC()
	sess.PaidAt = &now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if err := s.repo.UpdateSession(ctx, tx, sess); err != nil {
		return nil, err
	}
	if err := s.outbox.Enqueue(ctx, tx, OpUpsert, sess.ID, sess); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	result.ReceiptNumber = s.receiptNumber(ctx, sess)
	s.printAndKick(ctx, sess, result)

	s.log.Info("parking payment settled",
		zap.String("session_id", sessionID.String()),
		zap.String("method", string(req.Method)),
		zap.Int64("total", sess.Total))
	return result, nil
}

// Reassign moves the session to another spot atomically: the old spot frees
// and the new one occupies in the same transaction.
func (s *service) Reassign(ctx context.Context, sessionID uuid.UUID, operatorID string, req ReassignRequest) (*Session, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, fault.Validationf("reassignment reason is required")
	}
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusActive {
		return nil, fault.Conflictf("parking session %s is not active", sessionID)
	}
	newSpot, err := s.repo.GetSpot(ctx, req.NewSpotID)
	if err != nil {
		return nil, err
	}
	if newSpot.VehicleType != sess.VehicleType {
		return nil, fault.Validationf("spot %s takes %s, session vehicle is %s", newSpot.Code, newSpot.VehicleType, sess.VehicleType)
	}

	var extraFee *ledger.Entry
	if req.AdditionalFee != nil && *req.AdditionalFee > 0 {
		extraFee, err = ledger.NewParkingFee(sess.ShiftSessionID, sess.ID, *req.AdditionalFee, 0,
			sess.PaymentMethod, fmt.Sprintf("reassignment fee: %s", req.Reason))
		if err != nil {
			return nil, err
		}
	}

	oldSpot := sess.SpotID
	sess.SpotID = newSpot.ID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.repo.FreeSpot(ctx, tx, oldSpot); err != nil {
		return nil, err
	}
	if err := s.repo.OccupySpot(ctx, tx, newSpot.ID, sess.ID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSession(ctx, tx, sess); err != nil {
		return nil, err
	}
	if err := s.outbox.Enqueue(ctx, tx, OpUpsert, sess.ID, sess); err != nil {
		return nil, err
	}
	if extraFee != nil {
		if err := s.entries.AppendWithTx(ctx, tx, extraFee); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.log.Info("parking session reassigned",
		zap.String("session_id", sessionID.String()),
		zap.String("new_spot", newSpot.Code),
		zap.String("reason", req.Reason))
	return sess, nil
}

// Terminate ends the stay, frees the spot and optionally refunds part of the
// original total. The refund lands on the operator's current shift: that is
// the drawer the money physically leaves.
func (s *service) Terminate(ctx context.Context, sessionID uuid.UUID, operatorID string, req TerminateRequest) (*Session, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusActive {
		return nil, fault.Conflictf("parking session %s is not active", sessionID)
	}
	if !req.EndTime.After(sess.StartTime) {
		return nil, fault.Validationf("end time must be after start time")
	}
	if req.RefundAmount != nil && *req.RefundAmount > sess.Total {
		return nil, fault.Validationf("refund %d exceeds session total %d", *req.RefundAmount, sess.Total)
	}

	var refund *ledger.Entry
	if req.RefundAmount != nil && *req.RefundAmount > 0 {
		shiftSess, err := s.shifts.Active(ctx, operatorID)
		if err != nil {
			return nil, err
		}
		refund, err = ledger.NewRefund(shiftSess.ID, &sessionID, *req.RefundAmount,
			sess.PaymentMethod, fmt.Sprintf("refund: %s", req.Reason))
		if err != nil {
			return nil, err
		}
	}

	endTime := req.EndTime.UTC()
	sess.EndTime = &endTime
	sess.Status = StatusCompleted

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.repo.FreeSpot(ctx, tx, sess.SpotID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSession(ctx, tx, sess); err != nil {
		return nil, err
	}
	if err := s.outbox.Enqueue(ctx, tx, OpUpsert, sess.ID, sess); err != nil {
		return nil, err
	}
	if refund != nil {
		if err := s.entries.AppendWithTx(ctx, tx, refund); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.log.Info("parking session terminated",
		zap.String("session_id", sessionID.String()),
		zap.String("reason", req.Reason))
	return sess, nil
}

func (s *service) Get(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	return s.repo.GetSession(ctx, sessionID)
}

func (s *service) Spots(ctx context.Context) ([]*Spot, error) {
	return s.repo.ListSpots(ctx)
}

func (s *service) receiptNumber(ctx context.Context, sess *Session) string {
	entry, err := s.entries.Get(ctx, sess.FeeEntryID)
	if err != nil {
		return ""
	}
	if entry.ConfirmedReceipt != nil {
		return *entry.ConfirmedReceipt
	}
	return entry.ProvisionalReceipt
}

// printAndKick fires the counter hardware after the durable write. Failures
// are logged and never roll anything back.
func (s *service) printAndKick(ctx context.Context, sess *Session, result *PaymentResult) {
	receipt := peripheral.Receipt{
		ReceiptNumber: result.ReceiptNumber,
		Description:   fmt.Sprintf("parking %s", sess.PlateNumber),
		Total:         sess.Total,
		VATAmount:     sess.VATAmount,
		CashReceived:  result.CashReceived,
		Change:        result.Change,
	}
	if err := s.peripherals.PrintReceipt(ctx, receipt); err != nil {
		s.log.Warn("receipt print failed", zap.Error(err))
	}
	if result.Method == ledger.MethodCash {
		if err := s.peripherals.KickDrawer(ctx); err != nil {
			s.log.Warn("drawer kick failed", zap.Error(err))
		}
	}
}
