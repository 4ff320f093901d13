package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/nalog/internal/model"
)

const userColumns = `id, username, password_hash, role, created_at, deleted_at`

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts an account. A taken username yields ErrDuplicate.
func CreateUser(ctx context.Context, db DBTX, username, passwordHash string, role model.Role) (*model.User, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		username, passwordHash, role,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("inserting user %q: %w", username, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new user id: %w", err)
	}
	return GetUser(ctx, db, id)
}

// GetUser loads a user by ID, including soft-deleted ones so callers can tell
// a removed account from a missing one.
func GetUser(ctx context.Context, db DBTX, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername is the login lookup; deleted accounts are invisible.
func GetUserByUsername(ctx context.Context, db DBTX, username string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND deleted_at IS NULL`, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading user %q: %w", username, err)
	}
	return u, nil
}

// ListUsers returns active accounts in creation order.
func ListUsers(ctx context.Context, db DBTX) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUserRole sets the base role. Team overrides are untouched.
func UpdateUserRole(ctx context.Context, db DBTX, id int64, role model.Role) error {
	return updateActiveUser(ctx, db, id, "role", string(role))
}

// UpdateUserPassword stores a new bcrypt hash.
func UpdateUserPassword(ctx context.Context, db DBTX, id int64, passwordHash string) error {
	return updateActiveUser(ctx, db, id, "password_hash", passwordHash)
}

// updateActiveUser sets one column on a user that has not been deleted.
// column is always a literal from this file.
func updateActiveUser(ctx context.Context, db DBTX, id int64, column, value string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET `+column+` = ? WHERE id = ? AND deleted_at IS NULL`, value, id)
	if err != nil {
		return fmt.Errorf("updating %s of user %d: %w", column, id, err)
	}
	return nil
}

// DeleteUser soft-deletes an account. Their records and history remain, and
// AuthMiddleware rejects their outstanding tokens.
func DeleteUser(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
	return nil
}
