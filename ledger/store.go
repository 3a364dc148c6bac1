package ledger

import (
	"context"

	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/types"
)

// Store appends ledger records and aggregates them.
//
// Entry appends must fail with ErrTransactionNotFound unless txID names an
// existing transaction of the matching kind: gold entries need a global
// parent, item entries an item parent.
type Store interface {
	AppendTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, txID id.TransactionID) (*Transaction, error)
	AppendGoldEntries(ctx context.Context, txID id.TransactionID, entries []GoldEntry) error
	AppendItemEntries(ctx context.Context, txID id.TransactionID, entries []ItemEntry) error

	// CurrentStock sums item deltas for sku. Unknown SKUs sum to 0.
	CurrentStock(ctx context.Context, sku string) (int64, error)
	// StockLevels sums item deltas for every SKU with at least one entry.
	StockLevels(ctx context.Context) (map[string]int64, error)
	GoldBalance(ctx context.Context) (types.Gold, error)
}
