package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/nalog/internal/model"
)

// CreateWarehouse creates a warehouse, optionally owned by a team.
func CreateWarehouse(ctx context.Context, db DBTX, name string, teamID *int64) (*model.Warehouse, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO warehouses (name, team_id) VALUES (?, ?)`,
		name, teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating warehouse: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting warehouse id: %w", err)
	}
	return GetWarehouse(ctx, db, id)
}

// GetWarehouse returns an active warehouse by ID.
func GetWarehouse(ctx context.Context, db DBTX, id int64) (*model.Warehouse, error) {
	w := &model.Warehouse{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, team_id, created_at, deleted_at
		 FROM warehouses WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&w.ID, &w.Name, &w.TeamID, &w.CreatedAt, &w.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting warehouse: %w", err)
	}
	return w, nil
}

// ListWarehouses returns all active warehouses.
func ListWarehouses(ctx context.Context, db DBTX) ([]model.Warehouse, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, team_id, created_at, deleted_at
		 FROM warehouses WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing warehouses: %w", err)
	}
	defer rows.Close()

	var out []model.Warehouse
	for rows.Next() {
		var w model.Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.TeamID, &w.CreatedAt, &w.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning warehouse: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
