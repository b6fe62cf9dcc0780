package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/amigodopovo/academia/core"
	appfs "github.com/amigodopovo/academia/fs"
)

const driverName = "postgres"

// Provider hands out scoped connections from a pool.
type Provider struct {
	db *sqlx.DB
}

var _ core.DBProvider = (*Provider)(nil) // interface compliance check

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, conf.Database.DSN(dbName, admin))
	if err != nil {
		return nil, core.WrapError(core.KindConfig, err)
	}
	if conf.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(conf.Database.MaxOpenConns)
		db.SetMaxIdleConns(conf.Database.MaxOpenConns)
	}
	return db, nil
}

// Open prepares the pool. No connection is made until the first use (see Ping).
func Open(conf *core.Config) (*Provider, error) {
	if err := conf.Database.Validate(); err != nil {
		return nil, err
	}
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, err
	}
	return &Provider{db: db}, nil
}

// NewProvider wraps an already opened pool.
func NewProvider(db *sqlx.DB) *Provider {
	return &Provider{db: db}
}

// DB exposes the underlying pool, for goose.
func (p *Provider) DB() *sql.DB {
	return p.db.DB
}

func (p *Provider) Close() error {
	return p.db.Close()
}

// Acquire returns a dedicated connection. The caller must Close it.
func (p *Provider) Acquire(ctx context.Context) (*sqlx.Conn, error) {
	conn, err := p.db.Connx(ctx)
	if err != nil {
		return nil, TranslateError(errors.Wrap(err, "acquiring connection"))
	}
	return conn, nil
}

func (p *Provider) WithConn(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	return fn(conn)
}

// WithTx runs fn in a transaction, committed when fn returns nil and rolled back otherwise.
func (p *Provider) WithTx(ctx context.Context, opts *sql.TxOptions, fn func(tx core.DBExecutor) error) (err error) {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	tx, err := conn.BeginTxx(ctx, opts)
	if err != nil {
		return TranslateError(errors.Wrap(err, "beginning transaction"))
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return TranslateError(errors.Wrap(err, "committing transaction"))
	}
	return nil
}

// Ping waits for the database to be ready. Waits 100ms longer between each attempt.
// Configuration errors (bad credentials, unknown database) are returned at once.
func (p *Provider) Ping(ctx context.Context) error {
	return ping(ctx, p.db)
}

func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = TranslateError(db.PingContext(ctx))
		if err == nil || core.IsKind(err, core.KindConfig) {
			break
		}
		select {
		case <-ctx.Done():
			return core.WrapError(core.KindTransientConnect, errors.Wrap(ctx.Err(), "DB ping"))
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}

	if err != nil {
		return errors.Wrap(err, "DB ping")
	}
	return nil
}

func roleExists(ctx context.Context, db *sqlx.DB, name string) (bool, error) {
	var exists bool
	err := db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)", name)
	return exists, errors.Wrap(err, "checking app user")
}

func createAppUser(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	exists, err := roleExists(ctx, db, conf.Database.User)
	if err != nil {
		return err
	}
	if !exists {
		q := "CREATE USER " + pq.QuoteIdentifier(conf.Database.User) +
			" CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(conf.Database.Password)
		if _, err = db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	var exists bool
	err := db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}

	if !exists {
		if _, err = db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the application role (as admin) then the database (as the app user).
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	// connect as admin
	db, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = ping(ctx, db); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(ctx, db, conf); err != nil {
		return TranslateError(err)
	}

	// create DB as app user
	appDB, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()

	if err = createDB(ctx, appDB, conf); err != nil {
		return TranslateError(err)
	}
	return nil
}

// Baseline brings the baseline tables up to date.
func Baseline(db *sql.DB) error {
	if err := goose.RunFS("up", db, appfs.FS, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
