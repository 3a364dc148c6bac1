package apothecary_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/apothecary"
	"github.com/xraph/apothecary/cart"
	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/inventory"
	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/ledger"
	"github.com/xraph/apothecary/search"
	"github.com/xraph/apothecary/store"
	"github.com/xraph/apothecary/store/memory"
	"github.com/xraph/apothecary/types"
)

func potion(sku string, pt item.PotionType, price types.Gold) *item.Item {
	prices := make(map[types.DayOfWeek]types.Gold, len(types.Days))
	for _, d := range types.Days {
		prices[d] = price
	}
	return &item.Item{SKU: sku, Name: sku, PotionType: pt, PriceByDay: prices}
}

// newShop returns a shop over s stocked with RED_POTION and BLUE_POTION.
func newShop(t *testing.T, s store.Store, opts ...apothecary.Option) *apothecary.Shop {
	t.Helper()
	ctx := context.Background()

	opts = append([]apothecary.Option{apothecary.WithClock(types.FixedClock(types.Monday))}, opts...)
	shop := apothecary.New(s, opts...)
	if err := shop.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = shop.Stop() })

	for _, it := range []*item.Item{
		potion("RED_POTION", item.PotionType{100, 0, 0, 0}, 50),
		potion("BLUE_POTION", item.PotionType{0, 0, 100, 0}, 40),
	} {
		if err := shop.UpsertItem(ctx, it); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := shop.Adjust(ctx, ledger.Adjustment{
		Description: "opening stock",
		Items:       map[string]int64{"RED_POTION": 10, "BLUE_POTION": 10},
	}); err != nil {
		t.Fatal(err)
	}
	return shop
}

func buy(t *testing.T, shop *apothecary.Shop, customer string, lines map[string]int64) *ledger.Receipt {
	t.Helper()
	ctx := context.Background()

	c, err := shop.CreateCart(ctx, customer)
	if err != nil {
		t.Fatal(err)
	}
	for sku, q := range lines {
		if err := shop.SetLineItem(ctx, c.ID, sku, q); err != nil {
			t.Fatal(err)
		}
	}
	r, err := shop.Checkout(ctx, c.ID, "credit_card")
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestExampleScenario(t *testing.T) {
	ctx := context.Background()
	shop := newShop(t, memory.New())

	before, err := shop.CurrentStock(ctx, "RED_POTION")
	if err != nil {
		t.Fatal(err)
	}

	c, err := shop.CreateCart(ctx, "Alice")
	if err != nil {
		t.Fatal(err)
	}
	if err := shop.SetLineItem(ctx, c.ID, "RED_POTION", 3); err != nil {
		t.Fatal(err)
	}
	r, err := shop.Checkout(ctx, c.ID, "credit_card")
	if err != nil {
		t.Fatal(err)
	}

	if r.TotalPotionsBought != 3 || r.TotalGoldPaid != 150 {
		t.Errorf("receipt: got %d potions for %v", r.TotalPotionsBought, r.TotalGoldPaid)
	}
	if r.Day != types.Monday || r.TransactionID.Prefix() != id.PrefixGlobalTransaction {
		t.Errorf("receipt metadata: %+v", r)
	}

	after, _ := shop.CurrentStock(ctx, "RED_POTION")
	if after != before-3 {
		t.Errorf("stock: before %d after %d", before, after)
	}
	gold, _ := shop.GoldBalance(ctx)
	if gold != 150 {
		t.Errorf("gold: got %v", gold)
	}

	it, _ := shop.GetItem(ctx, "RED_POTION")
	if it.Sold(types.Monday) != 3 {
		t.Errorf("sold counter: got %d", it.Sold(types.Monday))
	}
}

// faultyStore fails every gold entry append inside a unit, after the
// global transaction, the settlement and the item entries were written.
type faultyStore struct {
	store.Store
}

type faultyRepo struct {
	store.Repository
}

func (faultyRepo) AppendGoldEntries(context.Context, id.TransactionID, []ledger.GoldEntry) error {
	return errors.New("disk full")
}

func (f faultyStore) Atomic(ctx context.Context, fn func(context.Context, store.Repository) error) error {
	return f.Store.Atomic(ctx, func(ctx context.Context, repo store.Repository) error {
		return fn(ctx, faultyRepo{repo})
	})
}

func TestCheckoutIsAtomic(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	shop := newShop(t, mem)

	c, _ := shop.CreateCart(ctx, "Alice")
	_ = shop.SetLineItem(ctx, c.ID, "RED_POTION", 3)

	faulty := apothecary.New(faultyStore{mem}, apothecary.WithClock(types.FixedClock(types.Monday)))
	_, err := faulty.Checkout(ctx, c.ID, "credit_card")
	if !errors.Is(err, apothecary.ErrStorageFailure) {
		t.Fatalf("expected storage failure, got %v", err)
	}

	stock, _ := shop.CurrentStock(ctx, "RED_POTION")
	if stock != 10 {
		t.Errorf("stock changed by failed checkout: %d", stock)
	}
	gold, _ := shop.GoldBalance(ctx)
	if gold != 0 {
		t.Errorf("gold changed by failed checkout: %v", gold)
	}
	got, _ := shop.GetCart(ctx, c.ID)
	if got.Settled() {
		t.Error("failed checkout settled the cart")
	}
	it, _ := shop.GetItem(ctx, "RED_POTION")
	if it.Sold(types.Monday) != 0 {
		t.Error("failed checkout bumped sold counter")
	}
	rows, _ := mem.SearchLineItems(ctx, search.Query{Sort: search.SortTimestamp, Order: search.OrderDesc}, 0, 6)
	if len(rows) != 0 {
		t.Errorf("failed checkout left line items: %+v", rows)
	}

	// The same cart still checks out on a healthy store.
	if _, err := shop.Checkout(ctx, c.ID, "credit_card"); err != nil {
		t.Fatal(err)
	}
}

func TestStockConservation(t *testing.T) {
	ctx := context.Background()
	shop := newShop(t, memory.New())

	sold := map[string]int64{}
	for i, lines := range []map[string]int64{
		{"RED_POTION": 2},
		{"RED_POTION": 1, "BLUE_POTION": 4},
		{"BLUE_POTION": 3},
		{"RED_POTION": 5},
	} {
		buy(t, shop, fmt.Sprintf("customer-%d", i), lines)
		for sku, q := range lines {
			sold[sku] += q
		}
	}

	for sku, q := range sold {
		stock, err := shop.CurrentStock(ctx, sku)
		if err != nil {
			t.Fatal(err)
		}
		if stock != 10-q {
			t.Errorf("%s: stock %d, want %d", sku, stock, 10-q)
		}
	}
	gold, _ := shop.GoldBalance(ctx)
	if want := types.Gold(8*50 + 7*40); gold != want {
		t.Errorf("gold: got %v, want %v", gold, want)
	}
}

// countingStore counts the ledger and cart writes made inside units.
type countingStore struct {
	store.Store
	writes *atomic.Int64
}

type countingRepo struct {
	store.Repository
	writes *atomic.Int64
}

func (r countingRepo) SettleCart(ctx context.Context, cartID id.CartID, payment string, txID id.TransactionID) error {
	r.writes.Add(1)
	return r.Repository.SettleCart(ctx, cartID, payment, txID)
}

func (r countingRepo) AppendTransaction(ctx context.Context, tx *ledger.Transaction) error {
	r.writes.Add(1)
	return r.Repository.AppendTransaction(ctx, tx)
}

func (r countingRepo) AppendGoldEntries(ctx context.Context, txID id.TransactionID, e []ledger.GoldEntry) error {
	r.writes.Add(1)
	return r.Repository.AppendGoldEntries(ctx, txID, e)
}

func (r countingRepo) AppendItemEntries(ctx context.Context, txID id.TransactionID, e []ledger.ItemEntry) error {
	r.writes.Add(1)
	return r.Repository.AppendItemEntries(ctx, txID, e)
}

func (r countingRepo) IncrementSold(ctx context.Context, sku string, day types.DayOfWeek, qty int64) error {
	r.writes.Add(1)
	return r.Repository.IncrementSold(ctx, sku, day, qty)
}

func (c countingStore) Atomic(ctx context.Context, fn func(context.Context, store.Repository) error) error {
	return c.Store.Atomic(ctx, func(ctx context.Context, repo store.Repository) error {
		return fn(ctx, countingRepo{repo, c.writes})
	})
}

func TestSecondCheckoutFails(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	shop := newShop(t, mem)

	c, _ := shop.CreateCart(ctx, "Alice")
	_ = shop.SetLineItem(ctx, c.ID, "RED_POTION", 1)
	first, err := shop.Checkout(ctx, c.ID, "credit_card")
	if err != nil {
		t.Fatal(err)
	}

	stock, _ := shop.CurrentStock(ctx, "RED_POTION")
	gold, _ := shop.GoldBalance(ctx)

	writes := new(atomic.Int64)
	counted := apothecary.New(countingStore{mem, writes}, apothecary.WithClock(types.FixedClock(types.Monday)))
	_, err = counted.Checkout(ctx, c.ID, "credit_card")
	if !errors.Is(err, apothecary.ErrCartAlreadySettled) {
		t.Fatalf("expected already settled, got %v", err)
	}
	if n := writes.Load(); n != 0 {
		t.Errorf("second checkout attempted %d ledger writes", n)
	}
	if err := shop.SetLineItem(ctx, c.ID, "RED_POTION", 2); !errors.Is(err, apothecary.ErrCartAlreadySettled) {
		t.Errorf("settled cart accepted an upsert: %v", err)
	}

	stock2, _ := shop.CurrentStock(ctx, "RED_POTION")
	gold2, _ := shop.GoldBalance(ctx)
	if stock2 != stock || gold2 != gold {
		t.Errorf("second checkout wrote to the ledger: stock %d→%d gold %v→%v", stock, stock2, gold, gold2)
	}

	// The cart still points at the first checkout's transaction only.
	got, _ := shop.GetCart(ctx, c.ID)
	if got.TransactionID != first.TransactionID {
		t.Errorf("cart transaction: got %s, want %s", got.TransactionID, first.TransactionID)
	}
	rows, _ := mem.SearchLineItems(ctx, search.Query{Sort: search.SortTimestamp, Order: search.OrderDesc}, 0, 6)
	if len(rows) != 1 {
		t.Errorf("line items after second checkout: %d", len(rows))
	}
}

func TestCheckoutRejectsGoldOverflow(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	shop := newShop(t, mem)

	// q potions at 50 gold each exceed the largest gold amount.
	q := int64(math.MaxInt64/50 + 1)
	if _, err := shop.Adjust(ctx, ledger.Adjustment{
		Description: "warehouse",
		Items:       map[string]int64{"RED_POTION": q - 10},
	}); err != nil {
		t.Fatal(err)
	}

	c, _ := shop.CreateCart(ctx, "Alice")
	if err := shop.SetLineItem(ctx, c.ID, "RED_POTION", q); err != nil {
		t.Fatal(err)
	}
	_, err := shop.Checkout(ctx, c.ID, "credit_card")
	if !errors.Is(err, apothecary.ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}

	if gold, _ := shop.GoldBalance(ctx); gold != 0 {
		t.Errorf("overflowing checkout moved gold: %v", gold)
	}
	if stock, _ := shop.CurrentStock(ctx, "RED_POTION"); stock != q {
		t.Errorf("overflowing checkout moved stock: %d", stock)
	}
	if got, _ := shop.GetCart(ctx, c.ID); got.Settled() {
		t.Error("overflowing checkout settled the cart")
	}

	// Gold sums across lines are checked too.
	if _, err := shop.Adjust(ctx, ledger.Adjustment{
		Description: "warehouse",
		Items:       map[string]int64{"BLUE_POTION": math.MaxInt64/40 - 10},
	}); err != nil {
		t.Fatal(err)
	}
	c2, _ := shop.CreateCart(ctx, "Bob")
	_ = shop.SetLineItem(ctx, c2.ID, "RED_POTION", math.MaxInt64/50)
	_ = shop.SetLineItem(ctx, c2.ID, "BLUE_POTION", math.MaxInt64/40)
	if _, err := shop.Checkout(ctx, c2.ID, "credit_card"); !errors.Is(err, apothecary.ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity for the summed total, got %v", err)
	}
	if gold, _ := shop.GoldBalance(ctx); gold != 0 {
		t.Errorf("overflowing checkout moved gold: %v", gold)
	}
}

func TestConcurrentCheckoutSettlesOnce(t *testing.T) {
	ctx := context.Background()
	shop := newShop(t, memory.New())

	c, _ := shop.CreateCart(ctx, "Alice")
	_ = shop.SetLineItem(ctx, c.ID, "RED_POTION", 1)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = shop.Checkout(ctx, c.ID, "credit_card")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, apothecary.ErrCartAlreadySettled):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly one successful checkout, got %d", ok)
	}
	if stock, _ := shop.CurrentStock(ctx, "RED_POTION"); stock != 9 {
		t.Errorf("stock: got %d", stock)
	}
}

func TestCheckoutErrors(t *testing.T) {
	ctx := context.Background()
	shop := newShop(t, memory.New())

	if _, err := shop.Checkout(ctx, id.NewCartID(), "credit_card"); !errors.Is(err, apothecary.ErrCartNotFound) {
		t.Errorf("missing cart: got %v", err)
	}

	c, _ := shop.CreateCart(ctx, "Alice")
	_ = shop.SetLineItem(ctx, c.ID, "RED_POTION", 11)
	if _, err := shop.Checkout(ctx, c.ID, "credit_card"); !errors.Is(err, apothecary.ErrInsufficientStock) {
		t.Errorf("oversell: got %v", err)
	}
	if _, err := shop.Checkout(ctx, c.ID, ""); !errors.Is(err, apothecary.ErrInvalidInput) {
		t.Errorf("empty payment: got %v", err)
	}
	if stock, _ := shop.CurrentStock(ctx, "RED_POTION"); stock != 10 {
		t.Errorf("rejected checkout moved stock: %d", stock)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	ctx := context.Background()
	shop := newShop(t, memory.New())

	c, _ := shop.CreateCart(ctx, "Window Shopper")
	r, err := shop.Checkout(ctx, c.ID, "nothing")
	if err != nil {
		t.Fatal(err)
	}
	if r.TotalPotionsBought != 0 || r.TotalGoldPaid != 0 {
		t.Errorf("empty cart receipt: %+v", r)
	}
}

func TestSetLineItemRules(t *testing.T) {
	ctx := context.Background()
	shop := newShop(t, memory.New())
	c, _ := shop.CreateCart(ctx, "Alice")

	tests := []struct {
		name    string
		cartID  id.CartID
		sku     string
		qty     int64
		wantErr error
	}{
		{"negative", c.ID, "RED_POTION", -1, apothecary.ErrInvalidQuantity},
		{"unknown cart", id.NewCartID(), "RED_POTION", 1, apothecary.ErrCartNotFound},
		{"unknown sku", c.ID, "GREEN_POTION", 1, apothecary.ErrItemNotFound},
		{"insert", c.ID, "RED_POTION", 2, nil},
		{"insert second", c.ID, "BLUE_POTION", 1, nil},
		{"overwrite", c.ID, "RED_POTION", 4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := shop.SetLineItem(ctx, tt.cartID, tt.sku, tt.qty)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	got, _ := shop.GetCart(ctx, c.ID)
	if len(got.Items) != 2 || got.Items[0] != (cart.LineItem{SKU: "RED_POTION", Quantity: 4}) {
		t.Errorf("items: %+v", got.Items)
	}

	if err := shop.SetLineItem(ctx, c.ID, "RED_POTION", 0); err != nil {
		t.Fatal(err)
	}
	got, _ = shop.GetCart(ctx, c.ID)
	if len(got.Items) != 1 || got.Items[0].SKU != "BLUE_POTION" {
		t.Errorf("zero quantity should remove: %+v", got.Items)
	}
}

func TestSearchPagination(t *testing.T) {
	ctx := context.Background()
	shop := newShop(t, memory.New())
	if _, err := shop.Adjust(ctx, ledger.Adjustment{Description: "restock", Items: map[string]int64{"RED_POTION": 20}}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 12; i++ {
		buy(t, shop, fmt.Sprintf("Alice %02d", i), map[string]int64{"RED_POTION": 1})
	}
	buy(t, shop, "Bob", map[string]int64{"BLUE_POTION": 1})

	want := []struct {
		size     int
		previous string
		next     string
	}{
		{5, "", "5"},
		{5, "0", "10"},
		{2, "5", ""},
	}

	cursor := ""
	seen := map[string]bool{}
	for i, w := range want {
		page, err := shop.Search(ctx, search.Query{Customer: "alice", Cursor: cursor})
		if err != nil {
			t.Fatal(err)
		}
		if len(page.Results) != w.size || page.Previous != w.previous || page.Next != w.next {
			t.Errorf("page %d: size %d prev %q next %q, want %d %q %q",
				i, len(page.Results), page.Previous, page.Next, w.size, w.previous, w.next)
		}
		for _, r := range page.Results {
			if seen[r.LineItemID.String()] {
				t.Errorf("line item %s returned twice", r.LineItemID)
			}
			seen[r.LineItemID.String()] = true
			if r.LineItemTotal != 50 || r.Quantity != 1 {
				t.Errorf("row: %+v", r)
			}
		}
		cursor = page.Next
	}
	if len(seen) != 12 {
		t.Errorf("expected 12 distinct rows, got %d", len(seen))
	}

	for _, bad := range []search.Query{{Cursor: "abc"}, {Cursor: "-5"}, {Sort: "price"}, {Order: "up"}} {
		if _, err := shop.Search(ctx, bad); !errors.Is(err, apothecary.ErrInvalidInput) {
			t.Errorf("%+v: got %v", bad, err)
		}
	}
}

func TestSearchDefaultOrderIsNewestFirst(t *testing.T) {
	ctx := context.Background()
	shop := newShop(t, memory.New())

	buy(t, shop, "First", map[string]int64{"RED_POTION": 1})
	time.Sleep(2 * time.Millisecond)
	buy(t, shop, "Second", map[string]int64{"RED_POTION": 1})

	page, err := shop.Search(ctx, search.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Results) != 2 || page.Results[0].Customer != "Second" {
		t.Errorf("results: %+v", page.Results)
	}
}

func TestCatalogClampsQuantity(t *testing.T) {
	ctx := context.Background()
	shop := newShop(t, memory.New())

	if _, err := shop.Adjust(ctx, ledger.Adjustment{
		Description: "bulk order",
		Items:       map[string]int64{"RED_POTION": 14990},
	}); err != nil {
		t.Fatal(err)
	}

	entries, err := shop.Catalog(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].SKU != "RED_POTION" {
		t.Fatalf("entries: %+v", entries)
	}
	if entries[0].Quantity != inventory.MaxDisplayedQuantity {
		t.Errorf("displayed quantity: got %d", entries[0].Quantity)
	}
	if stock, _ := shop.CurrentStock(ctx, "RED_POTION"); stock != 15000 {
		t.Errorf("stock: got %d", stock)
	}
	if entries[0].Price != 50 {
		t.Errorf("price: got %v", entries[0].Price)
	}
}

// dayCache is a Cache keyed by day with an invalidation counter.
type dayCache struct {
	mu          sync.Mutex
	entries     map[types.DayOfWeek][]inventory.CatalogEntry
	hits        int
	invalidated int
}

func (c *dayCache) Get(_ context.Context, day types.DayOfWeek) ([]inventory.CatalogEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[day]
	if ok {
		c.hits++
	}
	return e, ok, nil
}

func (c *dayCache) Set(_ context.Context, day types.DayOfWeek, e []inventory.CatalogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[day] = e
	return nil
}

func (c *dayCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[types.DayOfWeek][]inventory.CatalogEntry{}
	c.invalidated++
	return nil
}

func TestCatalogCache(t *testing.T) {
	ctx := context.Background()
	cache := &dayCache{entries: map[types.DayOfWeek][]inventory.CatalogEntry{}}
	shop := newShop(t, memory.New(), apothecary.WithCatalogCache(cache))

	_, _ = shop.Catalog(ctx)
	_, _ = shop.Catalog(ctx)
	if cache.hits != 1 {
		t.Errorf("expected one cache hit, got %d", cache.hits)
	}

	before := cache.invalidated
	buy(t, shop, "Alice", map[string]int64{"RED_POTION": 4})
	if cache.invalidated == before {
		t.Error("checkout did not invalidate the cache")
	}
	after, _ := shop.Catalog(ctx)
	for _, e := range after {
		if e.SKU == "RED_POTION" && e.Quantity != 6 {
			t.Errorf("catalog served stale stock after checkout: %+v", e)
		}
	}
}

func TestRenderCartStates(t *testing.T) {
	ctx := context.Background()
	shop := newShop(t, memory.New())

	got, err := shop.RenderCart(ctx, "12345")
	if err != nil || got != "Cart #12345 has not yet been created." {
		t.Errorf("unparseable id: %q %v", got, err)
	}
	missing := id.NewCartID().String()
	if got, _ := shop.RenderCart(ctx, missing); got != "Cart #"+missing+" has not yet been created." {
		t.Errorf("unknown cart: %q", got)
	}

	c, _ := shop.CreateCart(ctx, "Alice")
	_ = shop.SetLineItem(ctx, c.ID, "RED_POTION", 3)

	want := fmt.Sprintf("Cart #%s: Alice is seeking to buy: 3 RED_POTION ([100, 0, 0, 0]) at 50 gold each for 150 gold (10 remaining).", c.ID)
	if got, _ := shop.RenderCart(ctx, c.ID.String()); got != want {
		t.Errorf("staged:\n got %q\nwant %q", got, want)
	}

	if _, err := shop.Checkout(ctx, c.ID, "credit_card"); err != nil {
		t.Fatal(err)
	}
	got, _ = shop.RenderCart(ctx, c.ID.String())
	if !strings.Contains(got, "Alice used credit_card to buy: 3 RED_POTION") || !strings.Contains(got, "(7 remaining)") {
		t.Errorf("settled: %q", got)
	}
}

func TestCheckoutDescriptionIsStagedSummary(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	shop := newShop(t, mem)

	c, _ := shop.CreateCart(ctx, "Alice")
	_ = shop.SetLineItem(ctx, c.ID, "RED_POTION", 2)
	staged, _ := shop.RenderCart(ctx, c.ID.String())

	r, err := shop.Checkout(ctx, c.ID, "credit_card")
	if err != nil {
		t.Fatal(err)
	}
	tx, err := mem.GetTransaction(ctx, r.TransactionID)
	if err != nil {
		t.Fatal(err)
	}
	if tx.Description != staged || tx.Kind != ledger.KindGlobal {
		t.Errorf("global transaction: %+v", tx)
	}
}

func TestAdjust(t *testing.T) {
	ctx := context.Background()
	shop := newShop(t, memory.New())

	res, err := shop.Adjust(ctx, ledger.Adjustment{
		Description: "broken bottles",
		Gold:        -20,
		Items:       map[string]int64{"BLUE_POTION": -4},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.GlobalTransactionID.IsNil() || res.ItemTransactionID.IsNil() {
		t.Errorf("result: %+v", res)
	}
	if stock, _ := shop.CurrentStock(ctx, "BLUE_POTION"); stock != 6 {
		t.Errorf("stock: %d", stock)
	}
	if gold, _ := shop.GoldBalance(ctx); gold != -20 {
		t.Errorf("gold: %v", gold)
	}

	tests := []struct {
		name    string
		adj     ledger.Adjustment
		wantErr error
	}{
		{"no description", ledger.Adjustment{Gold: 1}, apothecary.ErrInvalidInput},
		{"moves nothing", ledger.Adjustment{Description: "noop"}, apothecary.ErrInvalidInput},
		{"below zero", ledger.Adjustment{Description: "x", Items: map[string]int64{"BLUE_POTION": -7}}, apothecary.ErrInsufficientStock},
		{"unknown sku", ledger.Adjustment{Description: "x", Items: map[string]int64{"NOPE": 1}}, apothecary.ErrItemNotFound},
		{"stock overflow", ledger.Adjustment{Description: "x", Items: map[string]int64{"BLUE_POTION": math.MaxInt64}}, apothecary.ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := shop.Adjust(ctx, tt.adj); !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
	if gold, _ := shop.GoldBalance(ctx); gold != -20 {
		t.Errorf("rejected adjustments moved gold: %v", gold)
	}
	if stock, _ := shop.CurrentStock(ctx, "BLUE_POTION"); stock != 6 {
		t.Errorf("rejected adjustments moved stock: %d", stock)
	}
}

func TestInventoryReads(t *testing.T) {
	ctx := context.Background()
	shop := newShop(t, memory.New())

	if _, err := shop.CurrentStock(ctx, "NOPE"); !errors.Is(err, apothecary.ErrItemNotFound) {
		t.Errorf("stock of unknown: %v", err)
	}
	price, err := shop.CurrentPrice(ctx, "BLUE_POTION", types.Friday)
	if err != nil || price != 40 {
		t.Errorf("price: %v %v", price, err)
	}
	if _, err := shop.CurrentPrice(ctx, "BLUE_POTION", "someday"); !errors.Is(err, apothecary.ErrInvalidInput) {
		t.Errorf("bad day: %v", err)
	}
	if err := shop.UpsertItem(ctx, &item.Item{}); !errors.Is(err, apothecary.ErrInvalidInput) {
		t.Errorf("invalid item: %v", err)
	}
	if _, err := shop.CreateCart(ctx, " "); !errors.Is(err, apothecary.ErrInvalidInput) {
		t.Errorf("blank customer: %v", err)
	}
}

type hookRecorder struct {
	mu        sync.Mutex
	checkouts int
	failures  int
}

func (h *hookRecorder) Name() string { return "recorder" }

func (h *hookRecorder) OnCartCheckedOut(context.Context, *ledger.Receipt, time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkouts++
	return nil
}

func (h *hookRecorder) OnCheckoutFailed(context.Context, id.CartID, error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures++
	return nil
}

func TestCheckoutHooks(t *testing.T) {
	ctx := context.Background()
	rec := &hookRecorder{}
	shop := newShop(t, memory.New(), apothecary.WithPlugin(rec))

	buy(t, shop, "Alice", map[string]int64{"RED_POTION": 1})
	_, _ = shop.Checkout(ctx, id.NewCartID(), "credit_card")

	if rec.checkouts != 1 || rec.failures != 1 {
		t.Errorf("hooks: %d checkouts, %d failures", rec.checkouts, rec.failures)
	}
}
