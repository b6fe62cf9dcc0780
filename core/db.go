package core

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor runs statements; satisfied by *sqlx.DB, *sqlx.Conn and *sqlx.Tx.
	DBExecutor interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
		QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	// DBProvider hands out scoped connections: fn holds one connection (or transaction)
	// for its whole extent, which is released on every return path.
	DBProvider interface {
		WithConn(ctx context.Context, fn func(exec DBExecutor) error) error
		WithTx(ctx context.Context, opts *sql.TxOptions, fn func(tx DBExecutor) error) error
	}
)
