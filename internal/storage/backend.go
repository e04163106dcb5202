// Package storage wraps the relational backend behind a single handle that
// knows how to open each supported driver, introspect table metadata for an
// upload namespace, and execute read-only SQL into normalized result rows.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"  // postgres driver
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver
	_ "modernc.org/sqlite"              // sqlite driver

	"github.com/tablechat/tablechat/internal/config"
	"github.com/tablechat/tablechat/internal/errors"
)

// TablePrefix precedes every table created from an upload. The full table
// name is data_<namespace>_<sheet>.
const TablePrefix = "data_"

// Backend is a handle on the active storage backend.
type Backend struct {
	db     *sql.DB
	driver string
}

// Open opens a backend connection for the configured driver and verifies it
// with a ping.
func Open(cfg config.DatabaseConfig) (*Backend, error) {
	driver := strings.ToLower(cfg.Driver)

	sqlDriver := driver
	if driver == "postgres" {
		sqlDriver = "pgx"
	}

	db, err := sql.Open(sqlDriver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to open %s database", driver)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		db.SetConnMaxLifetime(lifetime)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to ping database")
	}

	return &Backend{db: db, driver: driver}, nil
}

// NewBackend wraps an already-open database handle. Used by tests and by
// callers that manage the pool themselves.
func NewBackend(db *sql.DB, driver string) *Backend {
	return &Backend{db: db, driver: strings.ToLower(driver)}
}

// Driver returns the active driver name: sqlite, duckdb, or postgres.
func (b *Backend) Driver() string {
	return b.driver
}

// DB exposes the underlying handle for ingestion's bulk writes.
func (b *Backend) DB() *sql.DB {
	return b.db
}

// QuoteIdent double-quotes an identifier. All three supported backends
// accept standard double-quoted identifiers.
func (b *Backend) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// WithTx runs fn inside a transaction, rolling back on error.
func (b *Backend) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to commit transaction")
	}

	return nil
}

// Placeholder renders the n-th (1-based) bind placeholder for the active
// driver. Postgres uses $1, the embedded engines use ?.
func (b *Backend) Placeholder(n int) string {
	if b.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}

	return "?"
}

// Close closes the database connection
func (b *Backend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}

	return nil
}
