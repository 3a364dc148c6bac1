// Package postgres implements store.Store on PostgreSQL through the grove
// ORM and its pgx driver. Atomic units run as SERIALIZABLE transactions.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/drivers/pgdriver/pgmigrate"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// querier is satisfied by both *pgdriver.PgDB and *pgdriver.PgTx.
type querier interface {
	NewSelect(model ...any) *pgdriver.SelectQuery
	NewInsert(model any) *pgdriver.InsertQuery
	NewDelete(model any) *pgdriver.DeleteQuery
	NewRaw(query string, args ...any) *pgdriver.RawQuery
}

var (
	_ querier = (*pgdriver.PgDB)(nil)
	_ querier = (*pgdriver.PgTx)(nil)
)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	*repo
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	pg := pgdriver.Unwrap(db)
	return &Store{repo: &repo{q: pg}, db: db, pg: pg}
}

// Open connects to dsn and returns a store that owns the connection.
func Open(ctx context.Context, dsn string, opts ...driver.Option) (*Store, error) {
	pg := pgdriver.New()
	if err := pg.Open(ctx, dsn, opts...); err != nil {
		return nil, fmt.Errorf("apothecary/postgres: connect: %w", err)
	}
	db, err := grove.Open(pg)
	if err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("apothecary/postgres: open grove: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	orch := migrate.NewOrchestrator(pgmigrate.New(s.pg), Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("apothecary/postgres: migration failed: %w", err)
	}
	return nil
}

// Atomic runs fn inside a SERIALIZABLE transaction. A serialization
// failure is returned like any other error; nothing retries.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repo store.Repository) error) error {
	tx, err := s.pg.BeginTxQuery(ctx, &driver.TxOptions{IsolationLevel: driver.LevelSerializable})
	if err != nil {
		return fmt.Errorf("apothecary/postgres: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(ctx, &repo{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apothecary/postgres: commit: %w", err)
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
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
