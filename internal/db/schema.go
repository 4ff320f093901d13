package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'moderator', 'admin', 'supplier')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS teams (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS team_members (
    team_id               INTEGER NOT NULL REFERENCES teams(id),
    user_id               INTEGER NOT NULL REFERENCES users(id),
    role                  TEXT CHECK (role IN ('user', 'moderator', 'admin', 'supplier')),
    restricted_warehouses TEXT NOT NULL DEFAULT '[]',
    PRIMARY KEY (team_id, user_id)
);

CREATE TABLE IF NOT EXISTS warehouses (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    team_id    INTEGER REFERENCES teams(id),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS items (
    id          INTEGER PRIMARY KEY,
    code        TEXT NOT NULL DEFAULT '',
    name        TEXT NOT NULL,
    description TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at  DATETIME
);

CREATE TABLE IF NOT EXISTS inventory (
    warehouse_id INTEGER NOT NULL REFERENCES warehouses(id),
    item_id      INTEGER NOT NULL REFERENCES items(id),
    quantity     INTEGER NOT NULL CHECK (quantity >= 0),
    PRIMARY KEY (warehouse_id, item_id)
);

CREATE TABLE IF NOT EXISTS inventory_movements (
    id           INTEGER PRIMARY KEY,
    warehouse_id INTEGER NOT NULL REFERENCES warehouses(id),
    item_id      INTEGER NOT NULL REFERENCES items(id),
    delta        INTEGER NOT NULL CHECK (delta != 0),
    reason       TEXT NOT NULL CHECK (reason IN ('receipt', 'shipment', 'demo_return')),
    record_id    INTEGER REFERENCES records(id),
    notes        TEXT,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by   INTEGER REFERENCES users(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_movements_record_once
    ON inventory_movements(record_id, item_id, reason) WHERE record_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS records (
    id            INTEGER PRIMARY KEY,
    kind          TEXT NOT NULL CHECK (kind IN ('order', 'demo')),
    owner_user_id INTEGER NOT NULL REFERENCES users(id),
    warehouse_id  INTEGER NOT NULL REFERENCES warehouses(id),
    status        TEXT NOT NULL DEFAULT 'requested',
    version       INTEGER NOT NULL DEFAULT 1,
    title         TEXT NOT NULL DEFAULT '',
    memo          TEXT,
    metadata      TEXT NOT NULL DEFAULT '{}',
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE TABLE IF NOT EXISTS record_items (
    record_id INTEGER NOT NULL REFERENCES records(id),
    item_id   INTEGER NOT NULL REFERENCES items(id),
    quantity  INTEGER NOT NULL CHECK (quantity > 0),
    position  INTEGER NOT NULL,
    PRIMARY KEY (record_id, item_id)
);

CREATE TABLE IF NOT EXISTS record_history (
    id          INTEGER PRIMARY KEY,
    record_id   INTEGER NOT NULL REFERENCES records(id),
    seq         INTEGER NOT NULL,
    from_status TEXT NOT NULL,
    to_status   TEXT NOT NULL,
    actor_id    INTEGER NOT NULL REFERENCES users(id),
    created_at  DATETIME NOT NULL,
    UNIQUE (record_id, seq)
);

CREATE TABLE IF NOT EXISTS record_comments (
    id         INTEGER PRIMARY KEY,
    record_id  INTEGER NOT NULL REFERENCES records(id),
    user_id    INTEGER NOT NULL REFERENCES users(id),
    content    TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);
`

// EnsureSchema creates all tables and indexes if they don't already exist, then
// applies migrations.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return Migrate(db)
}
