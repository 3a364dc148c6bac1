// Package inventory holds the derived view rules: which items the shop
// advertises and how their stock is displayed.
package inventory

import (
	"context"
	"sort"

	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/types"
)

const (
	// MaxCatalogEntries caps how many items the catalog advertises.
	MaxCatalogEntries = 6
	// MaxDisplayedQuantity clamps the advertised stock of a single item.
	MaxDisplayedQuantity int64 = 10000
)

// CatalogEntry is one advertised item.
type CatalogEntry struct {
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Quantity   int64           `json:"quantity"`
	Price      types.Gold      `json:"price"`
	PotionType item.PotionType `json:"potion_type"`
}

// BuildCatalog selects items with non-zero stock by descending stock, ties
// broken by SKU, keeps at most MaxCatalogEntries and prices them for day.
// Items missing from stock have none. Stock is never negative, since every
// write that lowers it is checked first.
func BuildCatalog(items []*item.Item, stock map[string]int64, day types.DayOfWeek) []CatalogEntry {
	type ranked struct {
		it  *item.Item
		qty int64
	}

	candidates := make([]ranked, 0, len(items))
	for _, it := range items {
		if q := stock[it.SKU]; q != 0 {
			candidates = append(candidates, ranked{it: it, qty: q})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].qty != candidates[j].qty {
			return candidates[i].qty > candidates[j].qty
		}
		return candidates[i].it.SKU < candidates[j].it.SKU
	})

	if len(candidates) > MaxCatalogEntries {
		candidates = candidates[:MaxCatalogEntries]
	}

	entries := make([]CatalogEntry, len(candidates))
	for i, c := range candidates {
		entries[i] = CatalogEntry{
			SKU:        c.it.SKU,
			Name:       c.it.DisplayName(),
			Quantity:   DisplayQuantity(c.qty),
			Price:      c.it.Price(day),
			PotionType: c.it.PotionType,
		}
	}
	return entries
}

// DisplayQuantity clamps stock to MaxDisplayedQuantity.
func DisplayQuantity(stock int64) int64 {
	if stock > MaxDisplayedQuantity {
		return MaxDisplayedQuantity
	}
	return stock
}

// Cache stores a rendered catalog per pricing day. Implementations must
// treat a miss as (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, day types.DayOfWeek) ([]CatalogEntry, bool, error)
	Set(ctx context.Context, day types.DayOfWeek, entries []CatalogEntry) error
	// Invalidate drops every cached day.
	Invalidate(ctx context.Context) error
}
