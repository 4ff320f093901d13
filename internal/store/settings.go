package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

const settingJWTSecret = "jwt_secret"

// GetSetting returns a setting value. ok is false when the key is unset.
func GetSetting(ctx context.Context, db DBTX, key string) (value string, ok bool, err error) {
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying setting %s: %w", key, err)
	}
	return value, true, nil
}

// PutSettingIfAbsent stores value under key unless the key already exists, and
// returns whichever value ends up stored.
// Uses INSERT OR IGNORE + re-SELECT to avoid a TOCTOU race on concurrent startup.
func PutSettingIfAbsent(ctx context.Context, db DBTX, key, value string) (string, error) {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		key, value,
	)
	if err != nil {
		return "", fmt.Errorf("storing setting %s: %w", key, err)
	}

	stored, _, err := GetSetting(ctx, db, key)
	return stored, err
}

// GetJWTSecret returns the token signing key, generating and persisting one on
// first use.
func GetJWTSecret(ctx context.Context, db DBTX) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return PutSettingIfAbsent(ctx, db, settingJWTSecret, hex.EncodeToString(buf))
}
