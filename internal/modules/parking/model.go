package parking

import (
	"time"

	"github.com/google/uuid"

	"github.com/rgbautista/parkpoint-backend/internal/modules/ledger"
)

// VehicleType determines the hourly rate and which spots a vehicle may use.
type VehicleType string

const (
	VehicleMotorcycle VehicleType = "MOTORCYCLE"
	VehicleCar        VehicleType = "CAR"
	VehicleTruck      VehicleType = "TRUCK"
)

// DefaultHourlyRates are minor units per hour, overridable via NewService.
var DefaultHourlyRates = map[VehicleType]int64{
	VehicleMotorcycle: 2000,
	VehicleCar:        5000,
	VehicleTruck:      8000,
}

// Status represents the parking session state machine:
// ACTIVE → {COMPLETED, CANCELLED}.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// OpUpsert is the sync-queue operation kind for parking session writes. The
// payload is the full session row; the backing store derives spot occupancy
// transitions from it.
const OpUpsert = "parking.upsert"

// Discount is a percentage applied to the running subtotal. Stacked
// discounts multiply: senior + PWD is 0.8 × 0.8 of the subtotal.
type Discount struct {
	Code      string `json:"code"`
	Percent   int64  `json:"percent"`
	VATExempt bool   `json:"vat_exempt"`
}

// DefaultDiscounts is the standard discount table.
var DefaultDiscounts = map[string]Discount{
	"SENIOR": {Code: "SENIOR", Percent: 20, VATExempt: true},
	"PWD":    {Code: "PWD", Percent: 20, VATExempt: true},
	"PROMO":  {Code: "PROMO", Percent: 10, VATExempt: false},
}

// Spot is one parking space. At most one active session occupies it.
type Spot struct {
	ID          uuid.UUID   `json:"id"`
	Code        string      `json:"code"`
	VehicleType VehicleType `json:"vehicle_type"`
	Occupied    bool        `json:"occupied"`
	OccupiedBy  *uuid.UUID  `json:"occupied_by,omitempty"`
}

// NewSpot derives a deterministic spot id from its code, so every device and
// the backing store agree on spot identity without coordination.
func NewSpot(code string, vt VehicleType) *Spot {
	return &Spot{
		ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte("parkpoint-spot:"+code)),
		Code:        code,
		VehicleType: vt,
	}
}

// Session is one vehicle's stay, with the pricing breakdown frozen at
// creation. Amounts are integer minor units.
type Session struct {
	ID              uuid.UUID            `json:"id"`
	SpotID          uuid.UUID            `json:"spot_id"`
	ShiftSessionID  uuid.UUID            `json:"shift_session_id"`
	FeeEntryID      uuid.UUID            `json:"fee_entry_id"`
	PlateNumber     string               `json:"plate_number"`
	VehicleType     VehicleType          `json:"vehicle_type"`
	StartTime       time.Time            `json:"start_time"`
	EndTime         *time.Time           `json:"end_time,omitempty"`
	DurationMinutes int64                `json:"duration_minutes"`
	Subtotal        int64                `json:"subtotal"`
	DiscountTotal   int64                `json:"discount_total"`
	VATAmount       int64                `json:"vat_amount"`
	Total           int64                `json:"total"`
	Discounts       []Discount           `json:"discounts,omitempty"`
	PaymentMethod   ledger.PaymentMethod `json:"payment_method"`
	PaidAt          *time.Time           `json:"paid_at,omitempty"`
	Status          Status               `json:"status"`
}

// CreateRequest is the payload for opening a parking session.
type CreateRequest struct {
	PlateNumber     string               `json:"plate_number"`
	VehicleType     VehicleType          `json:"vehicle_type"`
	DurationMinutes int64                `json:"duration_minutes"`
	Discounts       []string             `json:"discounts,omitempty"`
	PaymentMethod   ledger.PaymentMethod `json:"payment_method"`
}

// PayRequest settles the session. Method must match the method chosen at
// creation; CashReceived is required for cash.
type PayRequest struct {
	Method       ledger.PaymentMethod `json:"method"`
	CashReceived *int64               `json:"cash_received,omitempty"`
}

// PaymentResult reports the settled amounts, including change for cash.
type PaymentResult struct {
	SessionID     uuid.UUID            `json:"session_id"`
	Method        ledger.PaymentMethod `json:"method"`
	Total         int64                `json:"total"`
	CashReceived  *int64               `json:"cash_received,omitempty"`
	Change        *int64               `json:"change,omitempty"`
	ReceiptNumber string               `json:"receipt_number"`
}

// ReassignRequest moves the session to another spot.
type ReassignRequest struct {
	NewSpotID     uuid.UUID `json:"new_spot_id"`
	Reason        string    `json:"reason"`
	AdditionalFee *int64    `json:"additional_fee,omitempty"`
}

// TerminateRequest ends the session early, optionally refunding part of the
// original total.
type TerminateRequest struct {
	EndTime      time.Time `json:"end_time"`
	Reason       string    `json:"reason"`
	RefundAmount *int64    `json:"refund_amount,omitempty"`
}
