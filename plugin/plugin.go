// Package plugin provides an extensible plugin system for Apothecary.
// Plugins hook into shop events after the corresponding write has
// committed. A hook can observe but never veto or roll back a write.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/apothecary/cart"
	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/ledger"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the shop starts. shop is the *apothecary.Shop.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, shop interface{}) error
}

// OnShutdown is called when the shop is stopping.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Cart hooks
// ──────────────────────────────────────────────────

// OnCartCreated is called after a cart is stored.
type OnCartCreated interface {
	Plugin
	OnCartCreated(ctx context.Context, c *cart.Cart) error
}

// OnLineItemSet is called after a line item is inserted, overwritten or,
// with a zero quantity, removed.
type OnLineItemSet interface {
	Plugin
	OnLineItemSet(ctx context.Context, cartID id.CartID, li cart.LineItem) error
}

// ──────────────────────────────────────────────────
// Checkout hooks
// ──────────────────────────────────────────────────

// OnCartCheckedOut is called after a checkout commits.
type OnCartCheckedOut interface {
	Plugin
	OnCartCheckedOut(ctx context.Context, r *ledger.Receipt, elapsed time.Duration) error
}

// OnCheckoutFailed is called after a checkout rolled back.
type OnCheckoutFailed interface {
	Plugin
	OnCheckoutFailed(ctx context.Context, cartID id.CartID, err error) error
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnAdjustmentRecorded is called after a compensating adjustment commits.
type OnAdjustmentRecorded interface {
	Plugin
	OnAdjustmentRecorded(ctx context.Context, adj ledger.Adjustment, res *ledger.AdjustmentResult) error
}
