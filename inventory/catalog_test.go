package inventory_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/xraph/apothecary/inventory"
	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/types"
)

func newItem(sku string, price types.Gold) *item.Item {
	return &item.Item{
		SKU:        sku,
		PotionType: item.PotionType{100, 0, 0, 0},
		PriceByDay: map[types.DayOfWeek]types.Gold{types.Monday: price, types.Tuesday: price * 2},
	}
}

func TestBuildCatalog(t *testing.T) {
	items := []*item.Item{
		newItem("A", 10),
		newItem("B", 20),
		newItem("C", 30),
		newItem("EMPTY", 40),
	}
	stock := map[string]int64{"A": 5, "B": 15000, "C": 5, "EMPTY": 0}

	got := inventory.BuildCatalog(items, stock, types.Tuesday)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(got), got)
	}

	wantOrder := []string{"B", "A", "C"}
	for i, sku := range wantOrder {
		if got[i].SKU != sku {
			t.Errorf("entry %d: got %s, want %s", i, got[i].SKU, sku)
		}
	}
	if got[0].Quantity != inventory.MaxDisplayedQuantity {
		t.Errorf("quantity should clamp to %d, got %d", inventory.MaxDisplayedQuantity, got[0].Quantity)
	}
	if got[0].Price != 40 {
		t.Errorf("tuesday price: got %v", got[0].Price)
	}
}

func TestBuildCatalogCapsEntries(t *testing.T) {
	var items []*item.Item
	stock := make(map[string]int64)
	for i := 0; i < 10; i++ {
		sku := fmt.Sprintf("SKU_%02d", i)
		items = append(items, newItem(sku, 1))
		stock[sku] = int64(i + 1)
	}

	got := inventory.BuildCatalog(items, stock, types.Monday)
	if len(got) != inventory.MaxCatalogEntries {
		t.Fatalf("expected %d entries, got %d", inventory.MaxCatalogEntries, len(got))
	}
	if got[0].SKU != "SKU_09" || got[5].SKU != "SKU_04" {
		t.Errorf("unexpected order: first %s last %s", got[0].SKU, got[5].SKU)
	}
}

func TestBuildCatalogSkipsOnlyZeroStock(t *testing.T) {
	items := []*item.Item{newItem("ZERO", 1), newItem("ONE", 1), newItem("MISSING", 1)}
	got := inventory.BuildCatalog(items, map[string]int64{"ZERO": 0, "ONE": 1}, types.Monday)
	if len(got) != 1 || got[0].SKU != "ONE" || got[0].Quantity != 1 {
		t.Errorf("expected only ONE, got %+v", got)
	}
}

func TestDisplayQuantity(t *testing.T) {
	tests := []struct{ in, want int64 }{
		{0, 0},
		{9999, 9999},
		{10000, 10000},
		{15000, 10000},
	}
	for _, tt := range tests {
		if got := inventory.DisplayQuantity(tt.in); got != tt.want {
			t.Errorf("DisplayQuantity(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// mapCache is an in-process Cache used by engine tests too.
type mapCache map[types.DayOfWeek][]inventory.CatalogEntry

func (m mapCache) Get(_ context.Context, day types.DayOfWeek) ([]inventory.CatalogEntry, bool, error) {
	e, ok := m[day]
	return e, ok, nil
}

func (m mapCache) Set(_ context.Context, day types.DayOfWeek, entries []inventory.CatalogEntry) error {
	m[day] = entries
	return nil
}

func (m mapCache) Invalidate(context.Context) error {
	for k := range m {
		delete(m, k)
	}
	return nil
}

func TestCacheContract(t *testing.T) {
	var c inventory.Cache = mapCache{}
	ctx := context.Background()

	if _, ok, _ := c.Get(ctx, types.Monday); ok {
		t.Fatal("expected miss")
	}
	_ = c.Set(ctx, types.Monday, []inventory.CatalogEntry{{SKU: "A"}})
	if e, ok, _ := c.Get(ctx, types.Monday); !ok || len(e) != 1 {
		t.Fatal("expected hit")
	}
	_ = c.Invalidate(ctx)
	if _, ok, _ := c.Get(ctx, types.Monday); ok {
		t.Fatal("expected miss after invalidate")
	}
}
