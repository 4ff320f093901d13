package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/erazemk/nalog/internal/model"
	"github.com/erazemk/nalog/internal/store"
)

// Direction says which way a delta moves stock.
type Direction int

// Delta directions.
const (
	Deduct Direction = iota + 1
	Restore
)

// Delta is one inventory adjustment tied to a record edge.
type Delta struct {
	WarehouseID int64
	Items       []model.LineItem
	Direction   Direction
	RecordID    int64
	ActorID     int64
}

// ApplyDelta adjusts stock for every line item and records one movement per
// item. Deductions are all-or-nothing: the first short item fails the whole
// delta with InsufficientStock before anything changes. Restorations are not
// bounded. A delta already applied for the same record fails with
// InvalidTransition through the movement uniqueness constraint.
//
// q must be the caller's transaction so the adjustment commits or rolls back
// with the status change.
func ApplyDelta(ctx context.Context, q store.DBTX, d Delta) error {
	switch d.Direction {
	case Deduct:
		return deduct(ctx, q, d)
	case Restore:
		return restore(ctx, q, d)
	}
	return fmt.Errorf("unknown delta direction %d", d.Direction)
}

func deduct(ctx context.Context, q store.DBTX, d Delta) error {
	for _, li := range d.Items {
		have, err := store.GetQuantity(ctx, q, d.WarehouseID, li.ItemID)
		if err != nil {
			return err
		}
		if have < li.Quantity {
			return insufficientStock(li, have)
		}
	}

	for _, li := range d.Items {
		ok, err := store.DecrementStock(ctx, q, d.WarehouseID, li.ItemID, li.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			// Another writer got in between the check and the decrement.
			have, err := store.GetQuantity(ctx, q, d.WarehouseID, li.ItemID)
			if err != nil {
				return err
			}
			return insufficientStock(li, have)
		}
		if err := recordMovement(ctx, q, d, li, -li.Quantity, model.MovementShipment); err != nil {
			return err
		}
	}
	return nil
}

func restore(ctx context.Context, q store.DBTX, d Delta) error {
	for _, li := range d.Items {
		if err := store.IncrementStock(ctx, q, d.WarehouseID, li.ItemID, li.Quantity); err != nil {
			return err
		}
		if err := recordMovement(ctx, q, d, li, li.Quantity, model.MovementDemoReturn); err != nil {
			return err
		}
	}
	return nil
}

func recordMovement(ctx context.Context, q store.DBTX, d Delta, li model.LineItem, delta int, reason model.MovementReason) error {
	recordID, actorID := d.RecordID, d.ActorID
	err := store.InsertMovement(ctx, q, model.Movement{
		WarehouseID: d.WarehouseID,
		ItemID:      li.ItemID,
		Delta:       delta,
		Reason:      reason,
		RecordID:    &recordID,
		CreatedBy:   &actorID,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return cloneError(ErrInvalidTransition,
			fmt.Sprintf("stock for record %d was already adjusted (%s)", d.RecordID, reason), err,
			map[string]any{"record_id": d.RecordID, "item_id": li.ItemID})
	}
	return err
}
