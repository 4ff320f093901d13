package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erazemk/nalog/internal/model"
)

// InsertRecord creates a record in the requested state with its line items and
// returns the new ID.
func InsertRecord(ctx context.Context, db DBTX, r *model.Record) (int64, error) {
	meta, err := encodeMetadata(r.Metadata)
	if err != nil {
		return 0, err
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO records (kind, owner_user_id, warehouse_id, status, version, title, memo, metadata)
		 VALUES (?, ?, ?, ?, 1, ?, ?, ?)`,
		r.Kind, r.OwnerUserID, r.WarehouseID, model.StatusRequested, r.Title, r.Memo, meta,
	)
	if err != nil {
		return 0, fmt.Errorf("creating record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting record id: %w", err)
	}

	if err := insertLineItems(ctx, db, id, r.LineItems); err != nil {
		return 0, err
	}
	return id, nil
}

func insertLineItems(ctx context.Context, db DBTX, recordID int64, items []model.LineItem) error {
	for i, li := range items {
		_, err := db.ExecContext(ctx,
			`INSERT INTO record_items (record_id, item_id, quantity, position) VALUES (?, ?, ?, ?)`,
			recordID, li.ItemID, li.Quantity, i,
		)
		if err != nil {
			return fmt.Errorf("adding line item %d: %w", li.ItemID, err)
		}
	}
	return nil
}

const recordColumns = `id, kind, owner_user_id, warehouse_id, status, version, title, memo, metadata,
	created_at, updated_at, deleted_at`

func scanRecord(row rowScanner) (*model.Record, error) {
	r := &model.Record{}
	var memo sql.NullString
	var meta string
	if err := row.Scan(&r.ID, &r.Kind, &r.OwnerUserID, &r.WarehouseID, &r.Status, &r.Version,
		&r.Title, &memo, &meta, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt); err != nil {
		return nil, err
	}
	r.Memo = memo.String
	if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
		return nil, fmt.Errorf("decoding record metadata: %w", err)
	}
	if len(r.Metadata) == 0 {
		r.Metadata = nil
	}
	return r, nil
}

// GetRecord returns an active record with its line items and full status
// history, or nil if it does not exist.
func GetRecord(ctx context.Context, db DBTX, id int64) (*model.Record, error) {
	r, err := scanRecord(db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ? AND deleted_at IS NULL`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}

	if r.LineItems, err = ListLineItems(ctx, db, id); err != nil {
		return nil, err
	}
	if r.History, err = ListHistory(ctx, db, id); err != nil {
		return nil, err
	}
	return r, nil
}

// ListLineItems returns a record's line items in their original order.
func ListLineItems(ctx context.Context, db DBTX, recordID int64) ([]model.LineItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT ri.item_id, ri.quantity, i.name
		 FROM record_items ri
		 JOIN items i ON i.id = ri.item_id
		 WHERE ri.record_id = ?
		 ORDER BY ri.position`, recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing line items: %w", err)
	}
	defer rows.Close()

	var items []model.LineItem
	for rows.Next() {
		var li model.LineItem
		if err := rows.Scan(&li.ItemID, &li.Quantity, &li.ItemName); err != nil {
			return nil, fmt.Errorf("scanning line item: %w", err)
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

// RecordFilter narrows ListRecords. Zero values match everything.
type RecordFilter struct {
	Kind         model.Kind
	Status       model.Status
	WarehouseID  int64
	OwnerUserID  int64
	ExcludeWHIDs []int64
}

// ListRecords returns active records with line items (history omitted),
// newest first.
func ListRecords(ctx context.Context, db DBTX, f RecordFilter) ([]model.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE deleted_at IS NULL`
	var args []any

	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, f.Kind)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.WarehouseID > 0 {
		query += ` AND warehouse_id = ?`
		args = append(args, f.WarehouseID)
	}
	if f.OwnerUserID > 0 {
		query += ` AND owner_user_id = ?`
		args = append(args, f.OwnerUserID)
	}
	if len(f.ExcludeWHIDs) > 0 {
		query += ` AND warehouse_id NOT IN (?` + strings.Repeat(`, ?`, len(f.ExcludeWHIDs)-1) + `)`
		for _, id := range f.ExcludeWHIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range records {
		if records[i].LineItems, err = ListLineItems(ctx, db, records[i].ID); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// UpdateRecordStatus moves a record from one status to another, bumping its
// version. The update only applies while the record still has the expected
// status and version; otherwise ErrVersionConflict is returned.
func UpdateRecordStatus(ctx context.Context, db DBTX, id int64, from, to model.Status, expectedVersion int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE records SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ? AND version = ? AND deleted_at IS NULL`,
		to, id, from, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("updating record status: %w", err)
	}
	return expectOneRow(result)
}

// UpdateRecordDetails replaces a record's editable fields. With requireStatus
// set, the update also requires the record to still be in that status. Line
// items are replaced only when items is non-nil.
func UpdateRecordDetails(ctx context.Context, db DBTX, r *model.Record, expectedVersion int, requireStatus model.Status, items []model.LineItem) error {
	meta, err := encodeMetadata(r.Metadata)
	if err != nil {
		return err
	}

	query := `UPDATE records SET title = ?, memo = ?, metadata = ?, version = version + 1,
	                 updated_at = CURRENT_TIMESTAMP
	          WHERE id = ? AND version = ? AND deleted_at IS NULL`
	args := []any{r.Title, r.Memo, meta, r.ID, expectedVersion}
	if requireStatus != "" {
		query += ` AND status = ?`
		args = append(args, requireStatus)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating record: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}

	if items == nil {
		return nil
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM record_items WHERE record_id = ?`, r.ID); err != nil {
		return fmt.Errorf("clearing line items: %w", err)
	}
	return insertLineItems(ctx, db, r.ID, items)
}

// DeleteRecord soft-deletes a record that is still requested and at the
// expected version.
func DeleteRecord(ctx context.Context, db DBTX, id int64, expectedVersion int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE records SET deleted_at = CURRENT_TIMESTAMP, version = version + 1
		 WHERE id = ? AND version = ? AND status = ? AND deleted_at IS NULL`,
		id, expectedVersion, model.StatusRequested,
	)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n != 1 {
		return ErrVersionConflict
	}
	return nil
}

func encodeMetadata(m map[string]string) (string, error) {
	if m == nil {
		m = map[string]string{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding record metadata: %w", err)
	}
	return string(b), nil
}
