package item

import (
	"context"

	"github.com/xraph/apothecary/types"
)

// Store persists catalog items. Sold counters change only through
// IncrementSold, which the checkout engine calls inside its atomic unit.
type Store interface {
	PutItem(ctx context.Context, it *Item) error
	GetItem(ctx context.Context, sku string) (*Item, error)
	ListItems(ctx context.Context) ([]*Item, error)
	IncrementSold(ctx context.Context, sku string, day types.DayOfWeek, qty int64) error
}
