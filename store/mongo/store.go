// Package mongo implements store.Store on MongoDB through the grove ORM
// and its mongo driver. Atomic units run as multi-document transactions,
// so the deployment must be a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"
	"github.com/xraph/grove/drivers/mongodriver/mongomigrate"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/apothecary/store"
)

// Collection name constants.
const (
	colItems        = "apothecary_items"
	colCarts        = "apothecary_carts"
	colTransactions = "apothecary_transactions"
	colGoldEntries  = "apothecary_gold_entries"
	colItemEntries  = "apothecary_item_entries"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	*repo
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	mdb := mongodriver.Unwrap(db)
	return &Store{
		repo: &repo{db: mdb.Database()},
		db:   db,
		mdb:  mdb,
	}
}

// Open connects to uri and returns a store over database. An empty
// database falls back to the name in the URI path.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	mdb := mongodriver.New()
	var opts []mongodriver.MongoOption
	if database != "" {
		opts = append(opts, mongodriver.WithDatabase(database))
	}
	if err := mdb.Open(ctx, uri, opts...); err != nil {
		_ = mdb.Close()
		return nil, fmt.Errorf("apothecary/mongo: connect: %w", err)
	}
	db, err := grove.Open(mdb)
	if err != nil {
		_ = mdb.Close()
		return nil, fmt.Errorf("apothecary/mongo: open grove: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Database returns the underlying mongo database.
func (s *Store) Database() *mongo.Database { return s.repo.db }

// Migrate creates indexes for all apothecary collections using the grove
// orchestrator, which records applied versions in grove_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	orch := migrate.NewOrchestrator(mongomigrate.New(s.mdb), Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("apothecary/mongo: migration failed: %w", err)
	}
	return nil
}

// Atomic runs fn inside a session transaction, committing when fn
// returns nil and aborting otherwise.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repo store.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apothecary/mongo: begin: %w", err)
	}
	mtx, ok := tx.Raw().(*mongodriver.MongoTx)
	if !ok {
		_ = tx.Rollback()
		return fmt.Errorf("apothecary/mongo: unexpected transaction type %T", tx.Raw())
	}

	if err := fn(mtx.SessionContext(ctx), s.repo); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apothecary/mongo: commit: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
