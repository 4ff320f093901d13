package model

import "time"

// InventoryItem is the quantity of an item on hand in a warehouse.
type InventoryItem struct {
	WarehouseID    int64 `json:"warehouse_id"`
	ItemID         int64 `json:"item_id"`
	QuantityOnHand int   `json:"quantity_on_hand"`

	// Joined fields (not always populated).
	ItemName      string `json:"item_name,omitempty"`
	WarehouseName string `json:"warehouse_name,omitempty"`
}

// MovementReason classifies an inventory movement.
type MovementReason string

// Movement reasons.
const (
	MovementReceipt    MovementReason = "receipt"
	MovementShipment   MovementReason = "shipment"
	MovementDemoReturn MovementReason = "demo_return"
)

// Movement is one entry in the inventory in/out history.
type Movement struct {
	ID          int64          `json:"id"`
	WarehouseID int64          `json:"warehouse_id"`
	ItemID      int64          `json:"item_id"`
	Delta       int            `json:"delta"`
	Reason      MovementReason `json:"reason"`
	RecordID    *int64         `json:"record_id,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	CreatedBy   *int64         `json:"created_by,omitempty"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}
