package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/nalog/internal/model"
)

// CreateItem creates a new item.
func CreateItem(ctx context.Context, db DBTX, code, name, description string) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (code, name, description) VALUES (?, ?, ?)`,
		code, name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an active item by ID.
func GetItem(ctx context.Context, db DBTX, id int64) (*model.Item, error) {
	item := &model.Item{}
	var description sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, code, name, description, created_at, updated_at, deleted_at
		 FROM items WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&item.ID, &item.Code, &item.Name, &description, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.Description = description.String
	return item, nil
}

// ListItems returns all non-deleted items.
func ListItems(ctx context.Context, db DBTX) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, code, name, description, created_at, updated_at, deleted_at
		 FROM items WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var description sql.NullString
		if err := rows.Scan(&item.ID, &item.Code, &item.Name, &description, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Description = description.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's descriptive fields.
func UpdateItem(ctx context.Context, db DBTX, id int64, code, name, description string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET code = ?, name = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		code, name, description, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem soft-deletes an item.
func DeleteItem(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}
