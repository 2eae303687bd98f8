package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('admin', 'member')),
    password_hash TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS categories (
    id   TEXT PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS locations (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    capacity    INTEGER CHECK (capacity IS NULL OR capacity >= 0),
    responsible TEXT NOT NULL DEFAULT '',
    created_at  DATETIME NOT NULL,
    updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    category_id   TEXT NOT NULL DEFAULT '',
    category_name TEXT NOT NULL DEFAULT '',
    quantity      INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    min_quantity  INTEGER NOT NULL DEFAULT 0 CHECK (min_quantity >= 0),
    unit          TEXT NOT NULL DEFAULT '',
    location_id   TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL DEFAULT 'available'
                  CHECK (status IN ('available', 'borrowed', 'damaged', 'maintenance')),
    image_url     TEXT NOT NULL DEFAULT '',
    documents     TEXT NOT NULL DEFAULT '[]',
    created_at    DATETIME NOT NULL,
    updated_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_location ON items(location_id);

CREATE TABLE IF NOT EXISTS movements (
    id            TEXT PRIMARY KEY,
    item_id       TEXT NOT NULL,
    item_name     TEXT NOT NULL,
    item_unit     TEXT NOT NULL DEFAULT '',
    item_category TEXT NOT NULL DEFAULT '',
    item_location TEXT NOT NULL DEFAULT '',
    type          TEXT NOT NULL CHECK (type IN ('input', 'output')),
    reason        TEXT NOT NULL CHECK (reason IN ('purchase', 'use', 'discard', 'maintenance', 'other')),
    quantity      INTEGER NOT NULL CHECK (quantity > 0),
    user_id       TEXT NOT NULL,
    user_name     TEXT NOT NULL,
    user_email    TEXT NOT NULL DEFAULT '',
    user_role     TEXT NOT NULL DEFAULT '',
    date          DATETIME NOT NULL,
    notes         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_movements_item ON movements(item_id);
CREATE INDEX IF NOT EXISTS idx_movements_date ON movements(date);

CREATE TABLE IF NOT EXISTS loans (
    id                   TEXT PRIMARY KEY,
    item_id              TEXT NOT NULL,
    item_name            TEXT NOT NULL,
    item_unit            TEXT NOT NULL DEFAULT '',
    item_category        TEXT NOT NULL DEFAULT '',
    item_location        TEXT NOT NULL DEFAULT '',
    borrower_id          TEXT NOT NULL,
    borrower_name        TEXT NOT NULL,
    borrower_email       TEXT NOT NULL DEFAULT '',
    borrower_role        TEXT NOT NULL DEFAULT '',
    quantity             INTEGER NOT NULL CHECK (quantity > 0),
    borrow_date          DATETIME NOT NULL,
    expected_return_date DATETIME NOT NULL,
    actual_return_date   DATETIME,
    returned_by_id       TEXT,
    returned_by_name     TEXT,
    notes                TEXT NOT NULL DEFAULT '',
    CHECK (expected_return_date >= borrow_date)
);

CREATE INDEX IF NOT EXISTS idx_loans_item ON loans(item_id);

CREATE TABLE IF NOT EXISTS notifications (
    id         TEXT PRIMARY KEY,
    type       TEXT NOT NULL CHECK (type IN ('low_stock', 'overdue_loan')),
    subject_id TEXT NOT NULL,
    item_id    TEXT NOT NULL,
    item_name  TEXT NOT NULL DEFAULT '',
    title      TEXT NOT NULL,
    message    TEXT NOT NULL,
    read       INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    UNIQUE (type, subject_id)
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist
// and applies pending migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return migrate(db)
}
