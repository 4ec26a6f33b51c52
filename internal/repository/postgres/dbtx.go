package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Compile-time checks
var (
	_ DBTX = (*sqlx.DB)(nil)
	_ DBTX = (*sqlx.Tx)(nil)
)

// DBTX is a common interface for *sqlx.DB and *sqlx.Tx. Read paths go through
// it so they run the same inside and outside a transaction; only operations
// that open their own transaction need the concrete *sqlx.DB.
type DBTX interface {
	// Core query methods
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row

	// sqlx extended methods
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Named query support
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}
