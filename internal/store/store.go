// Package store is the SQLite-backed entity store. Functions accept a DBTX so
// the same code runs standalone or inside a caller's transaction. Get
// functions return nil, nil when the row does not exist.
package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewID returns a fresh entity id.
func NewID() string {
	return uuid.NewString()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
