package store

import (
	"context"
	"database/sql"
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so store functions can run
// standalone or inside a caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	// ErrVersionConflict indicates an optimistic compare-and-set matched no row.
	ErrVersionConflict = errors.New("record version conflict")

	// ErrDuplicate indicates a unique constraint rejected the write.
	ErrDuplicate = errors.New("duplicate entry")

	// ErrWarehouseNotFound and ErrItemNotFound name a missing referenced row.
	ErrWarehouseNotFound = errors.New("warehouse not found")
	ErrItemNotFound      = errors.New("item not found")

	// ErrInvalidQuantity rejects a stock change that is not positive.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
