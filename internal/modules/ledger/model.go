package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
)

// EntryKind classifies a ledger entry. Each kind has its own constructor so
// an entry can only carry the fields legal for its kind.
type EntryKind string

const (
	KindParkingFee     EntryKind = "PARKING_FEE"
	KindDiscount       EntryKind = "DISCOUNT"
	KindCashAdjustment EntryKind = "CASH_ADJUSTMENT"
	KindRefund         EntryKind = "REFUND"
	KindViolationFee   EntryKind = "VIOLATION_FEE"
)

// PaymentMethod represents how the money moved.
type PaymentMethod string

const (
	MethodCash          PaymentMethod = "CASH"
	MethodCard          PaymentMethod = "CARD"
	MethodDigitalWallet PaymentMethod = "DIGITAL_WALLET"
)

// SyncState tracks whether the backing store has acknowledged the entry.
type SyncState string

const (
	SyncPending   SyncState = "PENDING"
	SyncConfirmed SyncState = "CONFIRMED"
)

// Entry is an immutable, signed monetary event attributable to a shift
// session. Amounts are integer minor units: positive increases drawer cash,
// negative decreases it. Corrections are new compensating entries, never
// edits or deletes.
type Entry struct {
	ID                 uuid.UUID     `json:"id"`
	SessionID          uuid.UUID     `json:"session_id"`
	Kind               EntryKind     `json:"kind"`
	Amount             int64         `json:"amount"`
	Method             PaymentMethod `json:"payment_method"`
	ParkingSessionID   *uuid.UUID    `json:"parking_session_id,omitempty"`
	VATAmount          int64         `json:"vat_amount"`
	Description        string        `json:"description"`
	ProvisionalReceipt string        `json:"provisional_receipt"`
	ConfirmedReceipt   *string       `json:"confirmed_receipt,omitempty"`
	SyncState          SyncState     `json:"sync_state"`
	CreatedAt          time.Time     `json:"created_at"`
}

// OpAppend is the sync-queue operation kind for ledger appends.
const OpAppend = "ledger.append"

func newEntry(sessionID uuid.UUID, kind EntryKind, amount int64, method PaymentMethod, desc string) *Entry {
	id := uuid.New()
	return &Entry{
		ID:                 id,
		SessionID:          sessionID,
		Kind:               kind,
		Amount:             amount,
		Method:             method,
		Description:        desc,
		ProvisionalReceipt: "P-" + strings.ToUpper(id.String()[:8]),
		SyncState:          SyncPending,
		CreatedAt:          time.Now().UTC(),
	}
}

// NewParkingFee builds a positive parking charge tied to a parking session.
func NewParkingFee(sessionID, parkingSessionID uuid.UUID, amount, vat int64, method PaymentMethod, desc string) (*Entry, error) {
	if amount <= 0 {
		return nil, fault.Validationf("parking fee amount must be positive, got %d", amount)
	}
	if vat < 0 {
		return nil, fault.Validationf("vat amount cannot be negative")
	}
	e := newEntry(sessionID, KindParkingFee, amount, method, desc)
	e.ParkingSessionID = &parkingSessionID
	e.VATAmount = vat
	return e, nil
}

// NewViolationFee builds a positive penalty charge.
func NewViolationFee(sessionID uuid.UUID, parkingSessionID *uuid.UUID, amount int64, method PaymentMethod, desc string) (*Entry, error) {
	if amount <= 0 {
		return nil, fault.Validationf("violation fee amount must be positive, got %d", amount)
	}
	e := newEntry(sessionID, KindViolationFee, amount, method, desc)
	e.ParkingSessionID = parkingSessionID
	return e, nil
}

// NewCashAdjustment builds a signed drawer correction. The signed amount is
// taken as-is: positive adds cash, negative removes it (deposits).
func NewCashAdjustment(sessionID uuid.UUID, amount int64, reason string) (*Entry, error) {
	if amount == 0 {
		return nil, fault.Validationf("adjustment amount cannot be zero")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fault.Validationf("adjustment reason is required")
	}
	return newEntry(sessionID, KindCashAdjustment, amount, MethodCash, reason), nil
}

// NewRefund builds a negative entry returning money to a customer. The amount
// argument is the positive refunded value; the stored amount is negative.
func NewRefund(sessionID uuid.UUID, parkingSessionID *uuid.UUID, amount int64, method PaymentMethod, reason string) (*Entry, error) {
	if amount <= 0 {
		return nil, fault.Validationf("refund amount must be positive, got %d", amount)
	}
	e := newEntry(sessionID, KindRefund, -amount, method, reason)
	e.ParkingSessionID = parkingSessionID
	return e, nil
}

// NewDiscountEntry builds a negative informational entry for a discount
// granted outside the parking pricing flow.
func NewDiscountEntry(sessionID uuid.UUID, amount int64, method PaymentMethod, desc string) (*Entry, error) {
	if amount <= 0 {
		return nil, fault.Validationf("discount amount must be positive, got %d", amount)
	}
	return newEntry(sessionID, KindDiscount, -amount, method, desc), nil
}

// Filter narrows ListBySession results.
type Filter struct {
	Kind   EntryKind
	Method PaymentMethod
}
