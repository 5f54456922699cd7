package shift

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
	"github.com/rgbautista/parkpoint-backend/internal/modules/drawer"
	"github.com/rgbautista/parkpoint-backend/internal/modules/peripheral"
)

// Outbox persists a pending sync item inside the caller's local transaction.
type Outbox interface {
	Enqueue(ctx context.Context, tx *sql.Tx, opKind string, recordID uuid.UUID, payload interface{}) error
}

// Service owns the shift session state machine that scopes all ledger
// activity.
type Service interface {
	Start(ctx context.Context, operatorID string, req StartRequest) (*Session, error)
	End(ctx context.Context, sessionID uuid.UUID, operatorID string, req EndRequest) (*Session, error)
	Cancel(ctx context.Context, sessionID uuid.UUID, operatorID string, req CancelRequest) (*Session, error)
	Active(ctx context.Context, operatorID string) (*Session, error)
	Get(ctx context.Context, sessionID uuid.UUID) (*Session, error)
	DrawerOperations(ctx context.Context, sessionID uuid.UUID) ([]*drawer.Operation, error)

	// RequireActive is the gate the ledger and parking flows check before
	// attaching money movement to a session.
	RequireActive(ctx context.Context, sessionID uuid.UUID) error
}

type service struct {
	db          *sql.DB
	repo        Repository
	drawerRepo  drawer.Repository
	outbox      Outbox
	peripherals peripheral.Peripherals
	log         *zap.Logger
}

func NewService(db *sql.DB, repo Repository, drawerRepo drawer.Repository, outbox Outbox, peripherals peripheral.Peripherals, log *zap.Logger) Service {
	return &service{
		db:          db,
		repo:        repo,
		drawerRepo:  drawerRepo,
		outbox:      outbox,
		peripherals: peripherals,
		log:         log.Named("shift"),
	}
}

// Start opens a shift for the operator. The session row, the drawer OPEN
// audit op and both pending sync items commit in one local transaction.
func (s *service) Start(ctx context.Context, operatorID string, req StartRequest) (*Session, error) {
	if operatorID == "" {
		return nil, fault.Validationf("operator id is required")
	}
	if req.LocationID == "" {
		return nil, fault.Validationf("location_id is required")
	}
	if req.CurrentCash < 0 || req.PreviousCash < 0 {
		return nil, fault.Validationf("cash amounts cannot be negative")
	}
	if req.CurrentCash < req.PreviousCash {
		return nil, fault.Validationf("current cash %d is less than the %d handed over by the previous shift", req.CurrentCash, req.PreviousCash)
	}

	if existing, err := s.repo.FindActiveByOperator(ctx, operatorID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fault.Conflictf("operator %s already has an active shift (id: %s)", operatorID, existing.ID)
	}

	sess := &Session{
		ID:           uuid.New(),
		OperatorID:   operatorID,
		LocationID:   req.LocationID,
		StartTime:    time.Now().UTC(),
		StartingCash: req.CurrentCash,
		Status:       StatusActive,
		Notes:        req.Notes,
	}
	op := drawer.NewOperation(sess.ID, drawer.OpOpen, operatorID)
	amount := req.CurrentCash
	op.Amount = &amount

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.repo.Insert(ctx, tx, sess); err != nil {
		return nil, err
	}
	if err := s.drawerRepo.Insert(ctx, tx, op); err != nil {
		return nil, err
	}
	if err := s.outbox.Enqueue(ctx, tx, OpUpsert, sess.ID, sess); err != nil {
		return nil, err
	}
	if err := s.outbox.Enqueue(ctx, tx, drawer.OpAppend, op.ID, op); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	// Side effect only; a drawer that fails to open never rolls back a shift.
	if err := s.peripherals.KickDrawer(ctx); err != nil {
		s.log.Warn("drawer kick failed", zap.Error(err))
	}

	s.log.Info("shift started",
		zap.String("session_id", sess.ID.String()),
		zap.String("operator_id", operatorID),
		zap.Int64("starting_cash", sess.StartingCash))
	return sess, nil
}

// End completes the shift and records the closing drawer count. The session
// is immutable afterwards.
func (s *service) End(ctx context.Context, sessionID uuid.UUID, operatorID string, req EndRequest) (*Session, error) {
	if req.EndCash < 0 {
		return nil, fault.Validationf("end cash cannot be negative")
	}
	sess, err := s.ownedActive(ctx, sessionID, operatorID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess.EndTime = &now
	sess.EndingCash = &req.EndCash
	sess.Status = StatusCompleted
	if req.Notes != "" {
		sess.Notes = req.Notes
	}

	op := drawer.NewOperation(sess.ID, drawer.OpClose, operatorID)
	endCash := req.EndCash
	op.Amount = &endCash

	if err := s.commitTransition(ctx, sess, op); err != nil {
		return nil, err
	}
	s.log.Info("shift ended",
		zap.String("session_id", sess.ID.String()),
		zap.Int64("ending_cash", req.EndCash))
	return sess, nil
}

// Cancel abandons the shift without a closing count. Supervisor action.
func (s *service) Cancel(ctx context.Context, sessionID uuid.UUID, operatorID string, req CancelRequest) (*Session, error) {
	if req.Reason == "" {
		return nil, fault.Validationf("cancellation reason is required")
	}
	sess, err := s.ownedActive(ctx, sessionID, operatorID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess.EndTime = &now
	sess.Status = StatusCancelled
	sess.Notes = req.Reason

	if err := s.commitTransition(ctx, sess, nil); err != nil {
		return nil, err
	}
	s.log.Info("shift cancelled",
		zap.String("session_id", sess.ID.String()),
		zap.String("reason", req.Reason))
	return sess, nil
}

func (s *service) Active(ctx context.Context, operatorID string) (*Session, error) {
	sess, err := s.repo.FindActiveByOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fault.NotFoundf("no active shift for operator %s", operatorID)
	}
	return sess, nil
}

func (s *service) Get(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	return s.repo.GetByID(ctx, sessionID)
}

func (s *service) DrawerOperations(ctx context.Context, sessionID uuid.UUID) ([]*drawer.Operation, error) {
	if _, err := s.repo.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.drawerRepo.ListBySession(ctx, sessionID)
}

func (s *service) RequireActive(ctx context.Context, sessionID uuid.UUID) error {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status != StatusActive {
		return fault.Conflictf("shift session %s is %s, not active", sessionID, sess.Status)
	}
	return nil
}

// ownedActive loads the session and hides it behind NotFound unless it is
// active and owned by the caller.
func (s *service) ownedActive(ctx context.Context, sessionID uuid.UUID, operatorID string) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.OperatorID != operatorID || sess.Status != StatusActive {
		return nil, fault.NotFoundf("no active shift session %s for operator %s", sessionID, operatorID)
	}
	return sess, nil
}

func (s *service) commitTransition(ctx context.Context, sess *Session, op *drawer.Operation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.repo.Update(ctx, tx, sess); err != nil {
		return err
	}
	if err := s.outbox.Enqueue(ctx, tx, OpUpsert, sess.ID, sess); err != nil {
		return err
	}
	if op != nil {
		if err := s.drawerRepo.Insert(ctx, tx, op); err != nil {
			return err
		}
		if err := s.outbox.Enqueue(ctx, tx, drawer.OpAppend, op.ID, op); err != nil {
			return err
		}
	}
	return tx.Commit()
}
