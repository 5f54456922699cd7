// Package peripheral abstracts the counter hardware. Peripherals are pure
// side-effect triggers fired after a record is durably committed; a failure
// here is logged and never rolls anything back.
package peripheral

import (
	"context"

	"go.uber.org/zap"
)

// Receipt is the minimal payload handed to the printer.
type Receipt struct {
	ReceiptNumber string
	Description   string
	Total         int64
	VATAmount     int64
	CashReceived  *int64
	Change        *int64
}

// Peripherals is the contract the core requires from the hardware layer.
type Peripherals interface {
	KickDrawer(ctx context.Context) error
	PrintReceipt(ctx context.Context, r Receipt) error
}

// LogPeripherals is the default implementation used when no hardware driver
// is attached: it only records that the trigger fired.
type LogPeripherals struct{ log *zap.Logger }

func NewLogPeripherals(log *zap.Logger) *LogPeripherals {
	return &LogPeripherals{log: log.Named("peripheral")}
}

func (p *LogPeripherals) KickDrawer(ctx context.Context) error {
	p.log.Info("drawer kick")
	return nil
}

func (p *LogPeripherals) PrintReceipt(ctx context.Context, r Receipt) error {
	p.log.Info("receipt print",
		zap.String("receipt_number", r.ReceiptNumber),
		zap.Int64("total", r.Total))
	return nil
}
