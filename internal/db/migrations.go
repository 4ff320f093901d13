package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: list queries filter records by warehouse and status.
	`CREATE INDEX IF NOT EXISTS idx_records_warehouse_status
	     ON records(warehouse_id, status) WHERE deleted_at IS NULL`,
	// Migration 2: movement history is browsed per warehouse, newest first.
	`CREATE INDEX IF NOT EXISTS idx_movements_warehouse
	     ON inventory_movements(warehouse_id, created_at)`,
}

// Migrate runs the database migrations.
func Migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
