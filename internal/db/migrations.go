package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: the movement ledger is append-only.
	`CREATE TRIGGER IF NOT EXISTS movements_no_update
	     BEFORE UPDATE ON movements
	 BEGIN
	     SELECT RAISE(ABORT, 'movements are append-only');
	 END`,
	`CREATE TRIGGER IF NOT EXISTS movements_no_delete
	     BEFORE DELETE ON movements
	 BEGIN
	     SELECT RAISE(ABORT, 'movements are append-only');
	 END`,

	// Migration 2: a returned loan stays returned.
	`CREATE TRIGGER IF NOT EXISTS loans_return_final
	     BEFORE UPDATE OF actual_return_date ON loans
	     WHEN OLD.actual_return_date IS NOT NULL
	 BEGIN
	     SELECT RAISE(ABORT, 'loan already returned');
	 END`,

	// Migration 3: speed up the active loan guard on item delete.
	`CREATE INDEX IF NOT EXISTS idx_loans_active
	     ON loans(item_id) WHERE actual_return_date IS NULL`,
}

// migrate applies every migration in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
