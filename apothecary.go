package apothecary

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xraph/apothecary/cart"
	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/inventory"
	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/ledger"
	"github.com/xraph/apothecary/plugin"
	"github.com/xraph/apothecary/search"
	"github.com/xraph/apothecary/store"
	"github.com/xraph/apothecary/types"
)

// Shop is the potion shop engine. Every operation is a single request;
// there are no background workers.
type Shop struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   types.Clock
	catalog inventory.Cache
}

// New creates a new Shop instance.
func New(s store.Store, opts ...Option) *Shop {
	shop := &Shop{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		clock:   types.SystemClock,
	}

	for _, opt := range opts {
		opt(shop)
	}

	return shop
}

// Option configures a Shop instance.
type Option func(*Shop)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Shop) {
		s.logger = logger
		s.plugins.WithLogger(logger)
	}
}

// WithClock sets the clock that picks today's pricing bucket.
func WithClock(c types.Clock) Option {
	return func(s *Shop) {
		s.clock = c
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(s *Shop) {
		_ = s.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(s *Shop) {
		s.plugins.WithTimeout(d)
	}
}

// WithCatalogCache serves Catalog from c. The cache is invalidated after
// every committed write that can change stock or price.
func WithCatalogCache(c inventory.Cache) Option {
	return func(s *Shop) {
		s.catalog = c
	}
}

// Store returns the underlying store.
func (s *Shop) Store() store.Store { return s.store }

// Plugins returns the plugin registry.
func (s *Shop) Plugins() *plugin.Registry { return s.plugins }

// Start migrates the store and initializes plugins.
func (s *Shop) Start(ctx context.Context) error {
	if err := s.store.Migrate(ctx); err != nil {
		return StorageError("migrate", err)
	}

	s.plugins.EmitInit(ctx, s)

	s.logger.Info("apothecary started",
		"plugins", s.plugins.Count(),
		"catalog_cache", s.catalog != nil,
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (s *Shop) Stop() error {
	s.plugins.EmitShutdown(context.Background())
	return s.store.Close()
}

// ──────────────────────────────────────────────────
// Catalog management
// ──────────────────────────────────────────────────

// UpsertItem creates or replaces a catalog item. Sold counters of an
// existing item are kept.
func (s *Shop) UpsertItem(ctx context.Context, it *item.Item) error {
	if err := it.Validate(); err != nil {
		return &Error{Kind: KindInvalidInput, Message: err.Error()}
	}
	if it.CreatedAt.IsZero() {
		it.Entity = types.NewEntity()
	} else {
		it.Touch()
	}
	if it.SoldByDay == nil {
		it.SoldByDay = make(map[types.DayOfWeek]int64)
	}

	if err := s.store.PutItem(ctx, it); err != nil {
		return StorageError("put item", err)
	}

	s.invalidateCatalog(ctx)
	return nil
}

// GetItem retrieves a catalog item by SKU.
func (s *Shop) GetItem(ctx context.Context, sku string) (*item.Item, error) {
	it, err := s.store.GetItem(ctx, sku)
	if err != nil {
		return nil, StorageError("get item", err)
	}
	return it, nil
}

// ──────────────────────────────────────────────────
// Carts
// ──────────────────────────────────────────────────

// CreateCart opens an empty cart for customer.
func (s *Shop) CreateCart(ctx context.Context, customer string) (*cart.Cart, error) {
	if strings.TrimSpace(customer) == "" {
		return nil, Errorf(KindInvalidInput, "customer is required")
	}

	c := cart.New(customer)
	if err := s.store.CreateCart(ctx, c); err != nil {
		return nil, StorageError("create cart", err)
	}

	s.plugins.EmitCartCreated(ctx, c)
	s.logger.Debug("cart created", "cart_id", c.ID.String(), "customer", customer)
	return c, nil
}

// GetCart retrieves a cart by ID.
func (s *Shop) GetCart(ctx context.Context, cartID id.CartID) (*cart.Cart, error) {
	c, err := s.store.GetCart(ctx, cartID)
	if err != nil {
		return nil, StorageError("get cart", err)
	}
	return c, nil
}

// SetLineItem sets the quantity of sku in a staged cart. Zero removes the
// line; a new SKU is appended and an existing one keeps its position.
func (s *Shop) SetLineItem(ctx context.Context, cartID id.CartID, sku string, quantity int64) error {
	if quantity < 0 {
		return Errorf(KindInvalidQuantity, "quantity %d is negative", quantity)
	}

	err := s.store.Atomic(ctx, func(ctx context.Context, repo store.Repository) error {
		c, err := repo.GetCart(ctx, cartID)
		if err != nil {
			return err
		}
		if c.Settled() {
			return ErrCartAlreadySettled
		}
		if quantity == 0 {
			return repo.DeleteLineItem(ctx, cartID, sku)
		}
		if _, err := repo.GetItem(ctx, sku); err != nil {
			return err
		}
		return repo.UpsertLineItem(ctx, cartID, cart.LineItem{SKU: sku, Quantity: quantity})
	})
	if err != nil {
		return StorageError("set line item", err)
	}

	s.plugins.EmitLineItemSet(ctx, cartID, cart.LineItem{SKU: sku, Quantity: quantity})
	return nil
}

// RenderCart returns the one-line summary of a cart. Ids that are not
// stored carts render as not yet created.
func (s *Shop) RenderCart(ctx context.Context, cartID string) (string, error) {
	cid, err := id.ParseCartID(cartID)
	if err != nil {
		return cart.RenderNotCreated(cartID), nil
	}

	c, err := s.store.GetCart(ctx, cid)
	if err != nil {
		if KindOf(err) == KindCartNotFound {
			return cart.RenderNotCreated(cartID), nil
		}
		return "", StorageError("get cart", err)
	}

	lines, err := s.renderLines(ctx, s.store, c, s.clock.Today())
	if err != nil {
		return "", StorageError("render cart", err)
	}
	return cart.Render(cartID, c, lines), nil
}

// renderLines resolves today's price and current stock for each line.
func (s *Shop) renderLines(ctx context.Context, repo store.Repository, c *cart.Cart, day types.DayOfWeek) ([]cart.RenderLine, error) {
	lines := make([]cart.RenderLine, 0, len(c.Items))
	for _, li := range c.Items {
		it, err := repo.GetItem(ctx, li.SKU)
		if err != nil {
			if KindOf(err) == KindItemNotFound {
				return nil, Errorf(KindItemNotFound, "item %s not found", li.SKU)
			}
			return nil, err
		}
		stock, err := repo.CurrentStock(ctx, li.SKU)
		if err != nil {
			return nil, err
		}
		lines = append(lines, cart.RenderLine{
			SKU:        li.SKU,
			Quantity:   li.Quantity,
			PotionType: it.PotionType.String(),
			Price:      it.Price(day),
			Stock:      stock,
		})
	}
	return lines, nil
}

// ──────────────────────────────────────────────────
// Checkout
// ──────────────────────────────────────────────────

// Checkout settles a cart: it records the sale in the ledger, decrements
// stock, bumps sold counters and freezes the cart, all in one unit.
// On error nothing is written.
func (s *Shop) Checkout(ctx context.Context, cartID id.CartID, payment string) (*ledger.Receipt, error) {
	start := time.Now()
	day := s.clock.Today()
	receipt := &ledger.Receipt{CartID: cartID, Day: day}

	err := s.store.Atomic(ctx, func(ctx context.Context, repo store.Repository) error {
		c, err := repo.GetCart(ctx, cartID)
		if err != nil {
			return err
		}
		if c.Settled() {
			return ErrCartAlreadySettled
		}
		if strings.TrimSpace(payment) == "" {
			return Errorf(KindInvalidInput, "payment is required")
		}

		lines, err := s.renderLines(ctx, repo, c, day)
		if err != nil {
			return err
		}
		var gold types.Gold
		var potions int64
		for _, l := range lines {
			if l.Stock < l.Quantity {
				return Errorf(KindInsufficientStock, "%s: %d in stock, %d requested", l.SKU, l.Stock, l.Quantity)
			}
			total, ok := l.Price.TimesChecked(l.Quantity)
			if ok {
				gold, ok = gold.AddChecked(total)
			}
			if ok {
				potions, ok = types.AddInt64(potions, l.Quantity)
			}
			if !ok {
				return Errorf(KindInvalidQuantity, "%s: %d at %s overflows the cart total", l.SKU, l.Quantity, l.Price)
			}
		}
		description := cart.RenderStaged(c, lines)

		gtx, err := ledger.NewTransaction(ledger.KindGlobal, description)
		if err != nil {
			return err
		}
		gtx.CartID = cartID
		if err := repo.AppendTransaction(ctx, gtx); err != nil {
			return err
		}
		if err := repo.SettleCart(ctx, cartID, payment, gtx.ID); err != nil {
			return err
		}

		for _, l := range lines {
			itx, err := ledger.NewTransaction(ledger.KindItem, description)
			if err != nil {
				return err
			}
			itx.ParentID = gtx.ID
			itx.CartID = cartID
			if err := repo.AppendTransaction(ctx, itx); err != nil {
				return err
			}
			if err := repo.AppendItemEntries(ctx, itx.ID, []ledger.ItemEntry{ledger.NewItemEntry(l.SKU, -l.Quantity)}); err != nil {
				return err
			}
			if err := repo.IncrementSold(ctx, l.SKU, day, l.Quantity); err != nil {
				return err
			}
		}

		if err := repo.AppendGoldEntries(ctx, gtx.ID, []ledger.GoldEntry{ledger.NewGoldEntry(gold)}); err != nil {
			return err
		}

		receipt.TransactionID = gtx.ID
		receipt.TotalPotionsBought = potions
		receipt.TotalGoldPaid = gold
		return nil
	})
	if err != nil {
		err = StorageError("checkout", err)
		s.plugins.EmitCheckoutFailed(ctx, cartID, err)
		s.logger.Warn("checkout failed",
			"cart_id", cartID.String(),
			"error", err,
		)
		return nil, err
	}

	elapsed := time.Since(start)
	s.invalidateCatalog(ctx)
	s.plugins.EmitCartCheckedOut(ctx, receipt, elapsed)
	s.logger.Info("cart checked out",
		"cart_id", cartID.String(),
		"transaction_id", receipt.TransactionID.String(),
		"potions", receipt.TotalPotionsBought,
		"gold", int64(receipt.TotalGoldPaid),
		"day", string(day),
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return receipt, nil
}

// ──────────────────────────────────────────────────
// Adjustments
// ──────────────────────────────────────────────────

// Adjust appends a compensating write: one global transaction carrying the
// gold delta and, when items are given, one item transaction carrying the
// stock deltas. No delta may drive an item's stock below zero.
func (s *Shop) Adjust(ctx context.Context, adj ledger.Adjustment) (*ledger.AdjustmentResult, error) {
	if strings.TrimSpace(adj.Description) == "" {
		return nil, Errorf(KindInvalidInput, "adjustment description is required")
	}
	if adj.Gold.IsZero() && len(adj.Items) == 0 {
		return nil, Errorf(KindInvalidInput, "adjustment moves nothing")
	}

	skus := make([]string, 0, len(adj.Items))
	for sku := range adj.Items {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	res := &ledger.AdjustmentResult{}
	err := s.store.Atomic(ctx, func(ctx context.Context, repo store.Repository) error {
		gtx, err := ledger.NewTransaction(ledger.KindGlobal, adj.Description)
		if err != nil {
			return err
		}
		if err := repo.AppendTransaction(ctx, gtx); err != nil {
			return err
		}
		res.GlobalTransactionID = gtx.ID

		if !adj.Gold.IsZero() {
			if err := repo.AppendGoldEntries(ctx, gtx.ID, []ledger.GoldEntry{ledger.NewGoldEntry(adj.Gold)}); err != nil {
				return err
			}
		}

		if len(skus) == 0 {
			return nil
		}

		entries := make([]ledger.ItemEntry, 0, len(skus))
		for _, sku := range skus {
			delta := adj.Items[sku]
			if _, err := repo.GetItem(ctx, sku); err != nil {
				if KindOf(err) == KindItemNotFound {
					return Errorf(KindItemNotFound, "item %s not found", sku)
				}
				return err
			}
			stock, err := repo.CurrentStock(ctx, sku)
			if err != nil {
				return err
			}
			next, ok := types.AddInt64(stock, delta)
			if !ok {
				return Errorf(KindInvalidQuantity, "%s: delta %d overflows stock %d", sku, delta, stock)
			}
			if next < 0 {
				return Errorf(KindInsufficientStock, "%s: %d in stock, delta %d", sku, stock, delta)
			}
			entries = append(entries, ledger.NewItemEntry(sku, delta))
		}

		itx, err := ledger.NewTransaction(ledger.KindItem, adj.Description)
		if err != nil {
			return err
		}
		itx.ParentID = gtx.ID
		if err := repo.AppendTransaction(ctx, itx); err != nil {
			return err
		}
		res.ItemTransactionID = itx.ID
		return repo.AppendItemEntries(ctx, itx.ID, entries)
	})
	if err != nil {
		return nil, StorageError("adjust", err)
	}

	s.invalidateCatalog(ctx)
	s.plugins.EmitAdjustmentRecorded(ctx, adj, res)
	s.logger.Info("adjustment recorded",
		"transaction_id", res.GlobalTransactionID.String(),
		"gold", int64(adj.Gold),
		"items", len(adj.Items),
	)
	return res, nil
}

// ──────────────────────────────────────────────────
// Derived inventory
// ──────────────────────────────────────────────────

// CurrentStock sums the ledger's item deltas for sku.
func (s *Shop) CurrentStock(ctx context.Context, sku string) (int64, error) {
	if _, err := s.store.GetItem(ctx, sku); err != nil {
		return 0, StorageError("get item", err)
	}
	stock, err := s.store.CurrentStock(ctx, sku)
	if err != nil {
		return 0, StorageError("current stock", err)
	}
	return stock, nil
}

// CurrentPrice returns the price of sku on day.
func (s *Shop) CurrentPrice(ctx context.Context, sku string, day types.DayOfWeek) (types.Gold, error) {
	if !day.Valid() {
		return 0, Errorf(KindInvalidInput, "unknown day %q", day)
	}
	it, err := s.store.GetItem(ctx, sku)
	if err != nil {
		return 0, StorageError("get item", err)
	}
	return it.Price(day), nil
}

// GoldBalance sums the ledger's gold deltas.
func (s *Shop) GoldBalance(ctx context.Context) (types.Gold, error) {
	gold, err := s.store.GoldBalance(ctx)
	if err != nil {
		return 0, StorageError("gold balance", err)
	}
	return gold, nil
}

// Catalog lists what the shop advertises today.
func (s *Shop) Catalog(ctx context.Context) ([]inventory.CatalogEntry, error) {
	day := s.clock.Today()

	if s.catalog != nil {
		entries, ok, err := s.catalog.Get(ctx, day)
		if err != nil {
			s.logger.Warn("catalog cache read failed", "error", err)
		} else if ok {
			return entries, nil
		}
	}

	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, StorageError("list items", err)
	}
	stock, err := s.store.StockLevels(ctx)
	if err != nil {
		return nil, StorageError("stock levels", err)
	}
	entries := inventory.BuildCatalog(items, stock, day)

	if s.catalog != nil {
		if err := s.catalog.Set(ctx, day, entries); err != nil {
			s.logger.Warn("catalog cache write failed", "error", err)
		}
	}
	return entries, nil
}

func (s *Shop) invalidateCatalog(ctx context.Context) {
	if s.catalog == nil {
		return
	}
	if err := s.catalog.Invalidate(ctx); err != nil {
		s.logger.Warn("catalog cache invalidation failed", "error", err)
	}
}

// ──────────────────────────────────────────────────
// Search
// ──────────────────────────────────────────────────

// Search pages through historical line items.
func (s *Shop) Search(ctx context.Context, q search.Query) (*search.Page, error) {
	offset, err := q.Normalize()
	if err != nil {
		return nil, &Error{Kind: KindInvalidInput, Message: err.Error()}
	}

	rows, err := s.store.SearchLineItems(ctx, q, offset, search.PageSize+1)
	if err != nil {
		return nil, StorageError("search", err)
	}
	return search.NewPage(offset, rows), nil
}
