// Package store defines the persistence contract shared by every backend.
package store

import (
	"context"

	"github.com/xraph/apothecary/cart"
	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/ledger"
	"github.com/xraph/apothecary/search"
)

// Repository is every read and write the shop performs. The entity
// interfaces share no method names, so they embed cleanly.
type Repository interface {
	cart.Store
	item.Store
	ledger.Store

	// SearchLineItems returns up to limit rows matching q, starting at
	// offset, ordered by q.Sort and q.Order then by storage sequence.
	// q must already be normalized.
	SearchLineItems(ctx context.Context, q search.Query, offset, limit int) ([]search.LineItem, error)
}

// Store is a Repository that can also open atomic units.
type Store interface {
	Repository

	// Atomic runs fn with a Repository bound to one unit of work. All of
	// fn's writes become visible together if fn returns nil, and none of
	// them do otherwise. Calls outside fn are not part of the unit.
	Atomic(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
