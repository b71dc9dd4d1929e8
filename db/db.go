// ABOUTME: SQL entity store over sqlx for SQLite and PostgreSQL
// ABOUTME: Opens connections, runs migrations and hands out repositories
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harperreed/dealdesk/store"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// DB implements store.Store on a relational database.
type DB struct {
	x       *sqlx.DB
	dialect string
	dsn     string
	now     func() time.Time
}

type Option func(*DB)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *DB) {
		d.now = now
	}
}

// OpenSQLite opens (creating if needed) a SQLite database in WAL mode and
// migrates it to the latest schema.
func OpenSQLite(path string, opts ...Option) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}

	x, err := sqlx.Open(DialectSQLite, path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection avoids "database is locked".
	x.SetMaxOpenConns(1)

	return open(x, DialectSQLite, path, opts)
}

// OpenPostgres connects to PostgreSQL by URL and migrates the schema.
func OpenPostgres(url string, opts ...Option) (*DB, error) {
	x, err := sqlx.Open(DialectPostgres, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return open(x, DialectPostgres, url, opts)
}

func open(x *sqlx.DB, dialect, dsn string, opts []Option) (*DB, error) {
	d := &DB{
		x:       x,
		dialect: dialect,
		dsn:     dsn,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := x.Ping(); err != nil {
		x.Close()
		return nil, store.Unavailable(fmt.Errorf("failed to connect: %w", err))
	}
	if err := RunMigrations(dialect, dsn); err != nil {
		x.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Companies() store.CompanyRepository { return &companyRepo{d} }
func (d *DB) Contacts() store.ContactRepository  { return &contactRepo{d} }
func (d *DB) Deals() store.DealRepository        { return &dealRepo{d} }

func (d *DB) Close() error {
	return d.x.Close()
}

// Dialect reports which database driver is in use.
func (d *DB) Dialect() string {
	return d.dialect
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

// withTx runs fn inside a transaction. Errors from fn are returned as-is;
// begin and commit failures are reported as unavailable.
func (d *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.x.BeginTxx(ctx, nil)
	if err != nil {
		return store.Unavailable(fmt.Errorf("failed to begin transaction: %w", err))
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return store.Unavailable(fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

// dbErr maps driver errors onto the store taxonomy.
func dbErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return store.Unavailable(err)
}

// stamp fills in identity and timestamps the store owns.
func (d *DB) stamp(createdAt, updatedAt *time.Time) {
	if createdAt.IsZero() {
		now := d.now()
		*createdAt = now
		*updatedAt = now
	}
}

// requireAffected turns a zero-row write into ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return store.Unavailable(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SchemaVersion reports the migration version of this database.
func (d *DB) SchemaVersion() (uint, bool, error) {
	return SchemaVersion(d.dialect, d.dsn)
}
