// Package sqlite implements store.Store on an embedded SQLite database.
// The store keeps a single connection, so atomic units are serialized.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/store"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// compile-time interface check
var _ store.Store = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements store.Store using SQLite via database/sql.
type Store struct {
	*repo
	db *sql.DB
}

// New wraps an open database. The caller should have limited it to a
// single connection; Open does that.
func New(db *sql.DB) *Store {
	return &Store{repo: &repo{q: db}, db: db}
}

// Open opens or creates the database at path.
//
// Connection configuration:
//   - one open connection, so writers never contend
//   - WAL journal and a busy timeout for readers in other processes
//   - foreign key enforcement
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("apothecary/sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("apothecary/sqlite: %s: %w", pragma, err)
		}
	}
	return nil
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("apothecary/sqlite: ping: %w", err)
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("apothecary/sqlite: open migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("apothecary/sqlite: create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("apothecary/sqlite: create migrate instance: %w", err)
	}
	// m.Close would close the shared *sql.DB.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apothecary/sqlite: migration failed: %w", err)
	}
	return nil
}

// Atomic runs fn inside a transaction on the single connection.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repo store.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apothecary/sqlite: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(ctx, &repo{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apothecary/sqlite: commit: %w", err)
	}
	return nil
}

// PutItem replaces the item row and its price table in one unit.
func (s *Store) PutItem(ctx context.Context, it *item.Item) error {
	return s.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		return r.PutItem(ctx, it)
	})
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// Timestamps are stored as UTC unix microseconds.
func toMicro(t time.Time) int64 { return t.UTC().UnixMicro() }

func fromMicro(v int64) time.Time { return time.UnixMicro(v).UTC() }
