// Package apothecary provides a ledger-backed potion shop engine for Go
// applications.
//
// Customers fill carts with potions and check out. Checkout never edits a
// stock or gold counter; it appends immutable ledger records, and stock and
// gold are sums over those records. It provides:
//
//   - Atomic checkout into gold and item ledger entries
//   - Derived stock, gold balance and a ranked catalog
//   - Per-day pricing and sold counters
//   - Cursor-paginated search over historical line items
//   - Memory, PostgreSQL, SQLite and MongoDB stores
//   - Plugin hooks for metrics and audit trails
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/apothecary"
//	    "github.com/xraph/apothecary/store/memory"
//	)
//
//	shop := apothecary.New(memory.New())
//	if err := shop.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer shop.Stop()
//
//	c, _ := shop.CreateCart(ctx, "Alice")
//	_ = shop.SetLineItem(ctx, c.ID, "RED_POTION", 3)
//	receipt, err := shop.Checkout(ctx, c.ID, "gold coins")
//
// # Ledger
//
// Every checkout writes one global transaction with a single gold entry and
// one item transaction per line with a negative stock entry. Corrections and
// restocks go through Shop.Adjust, which appends compensating entries. No
// record is ever updated or deleted.
//
// # Errors
//
// Operations return *Error values whose Kind says what went wrong. Match
// them with errors.Is against the Err* sentinels:
//
//	if errors.Is(err, apothecary.ErrInsufficientStock) {
//	    // tell the customer
//	}
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	cart_01h2xcejqtf2nbrexx3vqjhp41  // Cart ID
//	gtx_01h2xcejqtf2nbrexx3vqjhp41   // Global transaction ID
//	itx_01h455vb4pex5vsknk084sn02q   // Item transaction ID
package apothecary
