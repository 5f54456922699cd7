package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rgbautista/parkpoint-backend/internal/modules/drawer"
	"github.com/rgbautista/parkpoint-backend/internal/modules/ledger"
	"github.com/rgbautista/parkpoint-backend/internal/modules/parking"
	"github.com/rgbautista/parkpoint-backend/internal/modules/shift"
)

// The remote interfaces are satisfied by each module's postgres repository.
type (
	RemoteShift interface {
		Upsert(ctx context.Context, s *shift.Session) error
	}
	RemoteDrawer interface {
		Upsert(ctx context.Context, op *drawer.Operation) error
	}
	RemoteLedger interface {
		Upsert(ctx context.Context, e *ledger.Entry) (confirmedReceipt string, err error)
	}
	RemoteParking interface {
		Apply(ctx context.Context, s *parking.Session) error
	}
	// LedgerConfirmer writes the store-assigned receipt number back onto the
	// local entry once the append is acknowledged.
	LedgerConfirmer interface {
		ConfirmSync(ctx context.Context, id uuid.UUID, confirmedReceipt string) error
	}
)

// StoreApplier dispatches queued items to the backing store by operation
// kind. Every remote write is an upsert keyed by the record's client id, so
// the same code path serves first delivery and redelivery.
type StoreApplier struct {
	shifts      RemoteShift
	drawers     RemoteDrawer
	entries     RemoteLedger
	parking     RemoteParking
	localLedger LedgerConfirmer
	log         *zap.Logger
}

func NewStoreApplier(shifts RemoteShift, drawers RemoteDrawer, entries RemoteLedger, parkingRepo RemoteParking, localLedger LedgerConfirmer, log *zap.Logger) *StoreApplier {
	return &StoreApplier{
		shifts:      shifts,
		drawers:     drawers,
		entries:     entries,
		parking:     parkingRepo,
		localLedger: localLedger,
		log:         log.Named("applier"),
	}
}

func (a *StoreApplier) Apply(ctx context.Context, it *Item) error {
	switch it.Kind {
	case shift.OpUpsert:
		var s shift.Session
		if err := json.Unmarshal(it.Payload, &s); err != nil {
			return fmt.Errorf("decode %s payload: %w", it.Kind, err)
		}
		return a.shifts.Upsert(ctx, &s)

	case drawer.OpAppend:
		var op drawer.Operation
		if err := json.Unmarshal(it.Payload, &op); err != nil {
			return fmt.Errorf("decode %s payload: %w", it.Kind, err)
		}
		return a.drawers.Upsert(ctx, &op)

	case ledger.OpAppend:
		var e ledger.Entry
		if err := json.Unmarshal(it.Payload, &e); err != nil {
			return fmt.Errorf("decode %s payload: %w", it.Kind, err)
		}
		confirmed, err := a.entries.Upsert(ctx, &e)
		if err != nil {
			return err
		}
		if err := a.localLedger.ConfirmSync(ctx, e.ID, confirmed); err != nil {
			// The remote write stands; only the local badge is stale.
			a.log.Warn("confirm receipt locally", zap.String("entry_id", e.ID.String()), zap.Error(err))
		}
		return nil

	case parking.OpUpsert:
		var s parking.Session
		if err := json.Unmarshal(it.Payload, &s); err != nil {
			return fmt.Errorf("decode %s payload: %w", it.Kind, err)
		}
		return a.parking.Apply(ctx, &s)

	default:
		return fmt.Errorf("unknown sync operation kind %q", it.Kind)
	}
}
