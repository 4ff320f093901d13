package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/nalog/internal/model"
)

// GetQuantity returns the quantity of an item on hand in a warehouse. A missing
// inventory row counts as zero.
func GetQuantity(ctx context.Context, db DBTX, warehouseID, itemID int64) (int, error) {
	var qty int
	err := db.QueryRowContext(ctx,
		`SELECT quantity FROM inventory WHERE warehouse_id = ? AND item_id = ?`,
		warehouseID, itemID,
	).Scan(&qty)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("checking current quantity: %w", err)
	}
	return qty, nil
}

// DecrementStock removes quantity from a warehouse's stock of an item with a
// checked floor at zero. It reports false, without changing anything, when the
// stock on hand is smaller than quantity.
func DecrementStock(ctx context.Context, db DBTX, warehouseID, itemID int64, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, fmt.Errorf("quantity must be positive")
	}

	result, err := db.ExecContext(ctx,
		`UPDATE inventory SET quantity = quantity - ?
		 WHERE warehouse_id = ? AND item_id = ? AND quantity >= ?`,
		quantity, warehouseID, itemID, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("decrementing stock: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking decrement: %w", err)
	}
	return n == 1, nil
}

// IncrementStock adds quantity to a warehouse's stock of an item.
func IncrementStock(ctx context.Context, db DBTX, warehouseID, itemID int64, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO inventory (warehouse_id, item_id, quantity) VALUES (?, ?, ?)
		 ON CONFLICT (warehouse_id, item_id) DO UPDATE SET quantity = quantity + excluded.quantity`,
		warehouseID, itemID, quantity,
	)
	if err != nil {
		return fmt.Errorf("incrementing stock: %w", err)
	}
	return nil
}

// InsertMovement appends an entry to the inventory in/out history. A second
// movement for the same record, item and reason is rejected with ErrDuplicate.
func InsertMovement(ctx context.Context, db DBTX, m model.Movement) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO inventory_movements (warehouse_id, item_id, delta, reason, record_id, notes, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.WarehouseID, m.ItemID, m.Delta, m.Reason, m.RecordID, m.Notes, m.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("recording movement: %w", err)
	}
	return nil
}

// AddStock receives stock of an item into a warehouse and records the receipt.
func AddStock(ctx context.Context, db *sql.DB, warehouseID, itemID int64, quantity int, notes string, userID *int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	wh, err := GetWarehouse(ctx, tx, warehouseID)
	if err != nil {
		return err
	}
	if wh == nil {
		return ErrWarehouseNotFound
	}
	item, err := GetItem(ctx, tx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrItemNotFound
	}

	if err := IncrementStock(ctx, tx, warehouseID, itemID, quantity); err != nil {
		return err
	}
	err = InsertMovement(ctx, tx, model.Movement{
		WarehouseID: warehouseID,
		ItemID:      itemID,
		Delta:       quantity,
		Reason:      model.MovementReceipt,
		Notes:       notes,
		CreatedBy:   userID,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing stock addition: %w", err)
	}
	return nil
}

// ListInventory returns stock levels, optionally limited to one warehouse.
func ListInventory(ctx context.Context, db DBTX, warehouseID int64) ([]model.InventoryItem, error) {
	query := `SELECT inv.warehouse_id, inv.item_id, inv.quantity,
	                 i.name AS item_name, w.name AS warehouse_name
	          FROM inventory inv
	          JOIN items i ON i.id = inv.item_id
	          JOIN warehouses w ON w.id = inv.warehouse_id
	          WHERE 1=1`
	var args []any

	if warehouseID > 0 {
		query += ` AND inv.warehouse_id = ?`
		args = append(args, warehouseID)
	}
	query += ` ORDER BY w.name, i.name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		var inv model.InventoryItem
		if err := rows.Scan(&inv.WarehouseID, &inv.ItemID, &inv.QuantityOnHand, &inv.ItemName, &inv.WarehouseName); err != nil {
			return nil, fmt.Errorf("scanning inventory: %w", err)
		}
		items = append(items, inv)
	}
	return items, rows.Err()
}

// MovementFilter narrows ListMovements. Zero values match everything.
type MovementFilter struct {
	WarehouseID int64
	ItemID      int64
	RecordID    int64
}

// ListMovements returns inventory history, newest first.
func ListMovements(ctx context.Context, db DBTX, f MovementFilter) ([]model.Movement, error) {
	query := `SELECT m.id, m.warehouse_id, m.item_id, m.delta, m.reason, m.record_id, m.notes,
	                 m.created_at, m.created_by, i.name AS item_name
	          FROM inventory_movements m
	          JOIN items i ON i.id = m.item_id
	          WHERE 1=1`
	var args []any

	if f.WarehouseID > 0 {
		query += ` AND m.warehouse_id = ?`
		args = append(args, f.WarehouseID)
	}
	if f.ItemID > 0 {
		query += ` AND m.item_id = ?`
		args = append(args, f.ItemID)
	}
	if f.RecordID > 0 {
		query += ` AND m.record_id = ?`
		args = append(args, f.RecordID)
	}
	query += ` ORDER BY m.created_at DESC, m.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	defer rows.Close()

	var out []model.Movement
	for rows.Next() {
		var m model.Movement
		var notes sql.NullString
		if err := rows.Scan(&m.ID, &m.WarehouseID, &m.ItemID, &m.Delta, &m.Reason, &m.RecordID, &notes,
			&m.CreatedAt, &m.CreatedBy, &m.ItemName); err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		m.Notes = notes.String
		out = append(out, m)
	}
	return out, rows.Err()
}
