package model

import (
	"fmt"
	"time"
)

// Kind distinguishes order requests from demo requests.
type Kind string

// Record kinds.
const (
	KindOrder Kind = "order"
	KindDemo  Kind = "demo"
)

// Valid reports whether k is a known record kind.
func (k Kind) Valid() bool {
	return k == KindOrder || k == KindDemo
}

// Status is the workflow state of a record.
type Status string

// Statuses shared by orders and demos.
const (
	StatusRequested          Status = "requested"
	StatusApproved           Status = "approved"
	StatusRejected           Status = "rejected"
	StatusConfirmedByShipper Status = "confirmedByShipper"
	StatusRejectedByShipper  Status = "rejectedByShipper"
	StatusShipmentCompleted  Status = "shipmentCompleted"
	StatusDemoCompleted      Status = "demoCompleted"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{
	StatusRequested,
	StatusApproved,
	StatusRejected,
	StatusConfirmedByShipper,
	StatusRejectedByShipper,
	StatusShipmentCompleted,
	StatusDemoCompleted,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// LineItem is a requested quantity of one item.
type LineItem struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// ValidateLineItems checks that every quantity is positive and item IDs are unique.
func ValidateLineItems(items []LineItem) error {
	if len(items) == 0 {
		return fmt.Errorf("at least one line item is required")
	}
	seen := make(map[int64]bool, len(items))
	for _, li := range items {
		if li.ItemID <= 0 {
			return fmt.Errorf("line item has invalid item_id %d", li.ItemID)
		}
		if li.Quantity <= 0 {
			return fmt.Errorf("quantity for item %d must be positive", li.ItemID)
		}
		if seen[li.ItemID] {
			return fmt.Errorf("item %d appears more than once", li.ItemID)
		}
		seen[li.ItemID] = true
	}
	return nil
}

// HistoryEntry is one committed status change. Entries are never modified.
type HistoryEntry struct {
	Seq        int       `json:"seq"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	ActorID    int64     `json:"actor_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// Record is an order or demo request moving through the approval workflow.
type Record struct {
	ID          int64             `json:"id"`
	Kind        Kind              `json:"kind"`
	OwnerUserID int64             `json:"owner_user_id"`
	WarehouseID int64             `json:"warehouse_id"`
	Status      Status            `json:"status"`
	Version     int               `json:"version"`
	Title       string            `json:"title"`
	Memo        string            `json:"memo,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	LineItems   []LineItem        `json:"line_items"`
	History     []HistoryEntry    `json:"status_history"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   *time.Time        `json:"deleted_at,omitempty"`
}

// RecordPatch holds the editable, non-status fields of a record. Nil fields are
// left unchanged.
type RecordPatch struct {
	Title     *string           `json:"title,omitempty"`
	Memo      *string           `json:"memo,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	LineItems []LineItem        `json:"line_items,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p RecordPatch) Empty() bool {
	return p.Title == nil && p.Memo == nil && p.Metadata == nil && p.LineItems == nil
}

// Comment is a free-form note attached to a record.
type Comment struct {
	ID        int64      `json:"id"`
	RecordID  int64      `json:"record_id"`
	UserID    int64      `json:"user_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	Username string `json:"username,omitempty"`
}
