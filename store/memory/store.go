// Package memory is an in-process Store. Every write runs as an atomic
// unit over a private copy of the state that replaces the shared state
// only when the unit succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/apothecary"
	"github.com/xraph/apothecary/cart"
	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/ledger"
	"github.com/xraph/apothecary/search"
	"github.com/xraph/apothecary/store"
	"github.com/xraph/apothecary/types"
)

var _ store.Store = (*Store)(nil)

type txRow struct {
	tx  ledger.Transaction
	seq int64
}

type goldRow struct {
	entry ledger.GoldEntry
	seq   int64
}

type itemRow struct {
	entry ledger.ItemEntry
	seq   int64
}

// state is everything the store holds. Maps are copied per unit and their
// values are replaced, never mutated in place, so a copy is cheap and
// isolated. Entry slices are append-only and capped on copy.
type state struct {
	carts map[string]*cart.Cart
	items map[string]*item.Item
	txs   map[string]*txRow

	goldEntries []goldRow
	itemEntries []itemRow
	seq         int64
}

func newState() *state {
	return &state{
		carts: make(map[string]*cart.Cart),
		items: make(map[string]*item.Item),
		txs:   make(map[string]*txRow),
	}
}

func (st *state) clone() *state {
	cp := &state{
		carts:       make(map[string]*cart.Cart, len(st.carts)),
		items:       make(map[string]*item.Item, len(st.items)),
		txs:         make(map[string]*txRow, len(st.txs)),
		goldEntries: st.goldEntries[:len(st.goldEntries):len(st.goldEntries)],
		itemEntries: st.itemEntries[:len(st.itemEntries):len(st.itemEntries)],
		seq:         st.seq,
	}
	for k, v := range st.carts {
		cp.carts[k] = v
	}
	for k, v := range st.items {
		cp.items[k] = v
	}
	for k, v := range st.txs {
		cp.txs[k] = v
	}
	return cp
}

func (st *state) next() int64 {
	st.seq++
	return st.seq
}

// Store is the in-memory backend.
type Store struct {
	mu sync.RWMutex
	st *state
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// Atomic runs fn against a private copy of the state. fn must only use
// the repository it is given; calling back into the Store deadlocks.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repo store.Repository) error) error {
	return s.write(ctx, func(u *unit) error { return fn(ctx, u) })
}

func (s *Store) write(_ context.Context, fn func(u *unit) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&unit{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) read() *unit {
	return &unit{st: s.st}
}

// Cart methods

func (s *Store) CreateCart(ctx context.Context, c *cart.Cart) error {
	return s.write(ctx, func(u *unit) error { return u.CreateCart(ctx, c) })
}

func (s *Store) GetCart(ctx context.Context, cartID id.CartID) (*cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetCart(ctx, cartID)
}

func (s *Store) UpsertLineItem(ctx context.Context, cartID id.CartID, li cart.LineItem) error {
	return s.write(ctx, func(u *unit) error { return u.UpsertLineItem(ctx, cartID, li) })
}

func (s *Store) DeleteLineItem(ctx context.Context, cartID id.CartID, sku string) error {
	return s.write(ctx, func(u *unit) error { return u.DeleteLineItem(ctx, cartID, sku) })
}

func (s *Store) SettleCart(ctx context.Context, cartID id.CartID, payment string, txID id.TransactionID) error {
	return s.write(ctx, func(u *unit) error { return u.SettleCart(ctx, cartID, payment, txID) })
}

// Item methods

func (s *Store) PutItem(ctx context.Context, it *item.Item) error {
	return s.write(ctx, func(u *unit) error { return u.PutItem(ctx, it) })
}

func (s *Store) GetItem(ctx context.Context, sku string) (*item.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetItem(ctx, sku)
}

func (s *Store) ListItems(ctx context.Context) ([]*item.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListItems(ctx)
}

func (s *Store) IncrementSold(ctx context.Context, sku string, day types.DayOfWeek, qty int64) error {
	return s.write(ctx, func(u *unit) error { return u.IncrementSold(ctx, sku, day, qty) })
}

// Ledger methods

func (s *Store) AppendTransaction(ctx context.Context, tx *ledger.Transaction) error {
	return s.write(ctx, func(u *unit) error { return u.AppendTransaction(ctx, tx) })
}

func (s *Store) GetTransaction(ctx context.Context, txID id.TransactionID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetTransaction(ctx, txID)
}

func (s *Store) AppendGoldEntries(ctx context.Context, txID id.TransactionID, entries []ledger.GoldEntry) error {
	return s.write(ctx, func(u *unit) error { return u.AppendGoldEntries(ctx, txID, entries) })
}

func (s *Store) AppendItemEntries(ctx context.Context, txID id.TransactionID, entries []ledger.ItemEntry) error {
	return s.write(ctx, func(u *unit) error { return u.AppendItemEntries(ctx, txID, entries) })
}

func (s *Store) CurrentStock(ctx context.Context, sku string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().CurrentStock(ctx, sku)
}

func (s *Store) StockLevels(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().StockLevels(ctx)
}

func (s *Store) GoldBalance(ctx context.Context) (types.Gold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GoldBalance(ctx)
}

func (s *Store) SearchLineItems(ctx context.Context, q search.Query, offset, limit int) ([]search.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().SearchLineItems(ctx, q, offset, limit)
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// unit
// ──────────────────────────────────────────────────

// unit implements store.Repository over one state without locking.
type unit struct {
	st *state
}

func (u *unit) CreateCart(_ context.Context, c *cart.Cart) error {
	if _, exists := u.st.carts[c.ID.String()]; exists {
		return fmt.Errorf("apothecary/memory: cart %s already exists", c.ID)
	}
	u.st.carts[c.ID.String()] = c.Clone()
	return nil
}

func (u *unit) GetCart(_ context.Context, cartID id.CartID) (*cart.Cart, error) {
	c, ok := u.st.carts[cartID.String()]
	if !ok {
		return nil, apothecary.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (u *unit) UpsertLineItem(_ context.Context, cartID id.CartID, li cart.LineItem) error {
	c, ok := u.st.carts[cartID.String()]
	if !ok {
		return apothecary.ErrCartNotFound
	}
	cp := c.Clone()
	cp.SetQuantity(li.SKU, li.Quantity)
	cp.Touch()
	u.st.carts[cartID.String()] = cp
	return nil
}

func (u *unit) DeleteLineItem(ctx context.Context, cartID id.CartID, sku string) error {
	return u.UpsertLineItem(ctx, cartID, cart.LineItem{SKU: sku})
}

func (u *unit) SettleCart(_ context.Context, cartID id.CartID, payment string, txID id.TransactionID) error {
	c, ok := u.st.carts[cartID.String()]
	if !ok {
		return apothecary.ErrCartNotFound
	}
	if c.Settled() {
		return apothecary.ErrCartAlreadySettled
	}
	cp := c.Clone()
	cp.Payment = payment
	cp.TransactionID = txID
	cp.Touch()
	u.st.carts[cartID.String()] = cp
	return nil
}

func (u *unit) PutItem(_ context.Context, it *item.Item) error {
	cp := it.Clone()
	if existing, ok := u.st.items[it.SKU]; ok {
		cp.CreatedAt = existing.CreatedAt
		cp.SoldByDay = existing.Clone().SoldByDay
	}
	u.st.items[it.SKU] = cp
	return nil
}

func (u *unit) GetItem(_ context.Context, sku string) (*item.Item, error) {
	it, ok := u.st.items[sku]
	if !ok {
		return nil, apothecary.ErrItemNotFound
	}
	return it.Clone(), nil
}

func (u *unit) ListItems(_ context.Context) ([]*item.Item, error) {
	out := make([]*item.Item, 0, len(u.st.items))
	for _, it := range u.st.items {
		out = append(out, it.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (u *unit) IncrementSold(_ context.Context, sku string, day types.DayOfWeek, qty int64) error {
	it, ok := u.st.items[sku]
	if !ok {
		return apothecary.ErrItemNotFound
	}
	cp := it.Clone()
	cp.SoldByDay[day] += qty
	cp.Touch()
	u.st.items[sku] = cp
	return nil
}

func (u *unit) AppendTransaction(_ context.Context, tx *ledger.Transaction) error {
	if _, exists := u.st.txs[tx.ID.String()]; exists {
		return fmt.Errorf("apothecary/memory: transaction %s already exists", tx.ID)
	}
	u.st.txs[tx.ID.String()] = &txRow{tx: *tx, seq: u.st.next()}
	return nil
}

func (u *unit) GetTransaction(_ context.Context, txID id.TransactionID) (*ledger.Transaction, error) {
	row, ok := u.st.txs[txID.String()]
	if !ok {
		return nil, apothecary.ErrTransactionNotFound
	}
	tx := row.tx
	return &tx, nil
}

func (u *unit) parent(txID id.TransactionID, kind ledger.Kind) error {
	row, ok := u.st.txs[txID.String()]
	if !ok || row.tx.Kind != kind {
		return apothecary.Errorf(apothecary.KindTransactionNotFound, "no %s transaction %s", kind, txID)
	}
	return nil
}

func (u *unit) AppendGoldEntries(_ context.Context, txID id.TransactionID, entries []ledger.GoldEntry) error {
	if err := u.parent(txID, ledger.KindGlobal); err != nil {
		return err
	}
	for _, e := range entries {
		e.TransactionID = txID
		u.st.goldEntries = append(u.st.goldEntries, goldRow{entry: e, seq: u.st.next()})
	}
	return nil
}

func (u *unit) AppendItemEntries(_ context.Context, txID id.TransactionID, entries []ledger.ItemEntry) error {
	if err := u.parent(txID, ledger.KindItem); err != nil {
		return err
	}
	for _, e := range entries {
		e.TransactionID = txID
		u.st.itemEntries = append(u.st.itemEntries, itemRow{entry: e, seq: u.st.next()})
	}
	return nil
}

func (u *unit) CurrentStock(_ context.Context, sku string) (int64, error) {
	var total int64
	for _, r := range u.st.itemEntries {
		if r.entry.SKU == sku {
			total += r.entry.Delta
		}
	}
	return total, nil
}

func (u *unit) StockLevels(_ context.Context) (map[string]int64, error) {
	levels := make(map[string]int64)
	for _, r := range u.st.itemEntries {
		levels[r.entry.SKU] += r.entry.Delta
	}
	return levels, nil
}

func (u *unit) GoldBalance(_ context.Context) (types.Gold, error) {
	var total types.Gold
	for _, r := range u.st.goldEntries {
		total += r.entry.Delta
	}
	return total, nil
}

type searchRow struct {
	row search.LineItem
	seq int64
}

func (u *unit) SearchLineItems(_ context.Context, q search.Query, offset, limit int) ([]search.LineItem, error) {
	goldByTx := make(map[string]types.Gold)
	hasGold := make(map[string]bool)
	for _, g := range u.st.goldEntries {
		k := g.entry.TransactionID.String()
		goldByTx[k] += g.entry.Delta
		hasGold[k] = true
	}

	var rows []searchRow
	for _, ie := range u.st.itemEntries {
		itx, ok := u.st.txs[ie.entry.TransactionID.String()]
		if !ok || itx.tx.CartID.IsNil() {
			continue
		}
		c, ok := u.st.carts[itx.tx.CartID.String()]
		if !ok || !c.Settled() {
			continue
		}
		gtx, ok := u.st.txs[c.TransactionID.String()]
		if !ok || !hasGold[gtx.tx.ID.String()] {
			continue
		}

		row := search.LineItem{
			LineItemID:    ie.entry.ID,
			TransactionID: itx.tx.ID,
			CartID:        c.ID,
			SKU:           ie.entry.SKU,
			Customer:      c.Customer,
			Quantity:      -ie.entry.Delta,
			LineItemTotal: goldByTx[gtx.tx.ID.String()],
			Timestamp:     gtx.tx.CreatedAt,
		}
		if q.Matches(row) {
			rows = append(rows, searchRow{row: row, seq: ie.seq})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if q.Less(a.row, b.row) {
			return true
		}
		if q.Less(b.row, a.row) {
			return false
		}
		return a.seq < b.seq
	})

	if offset >= len(rows) {
		return []search.LineItem{}, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}

	out := make([]search.LineItem, 0, end-offset)
	for _, r := range rows[offset:end] {
		out = append(out, r.row)
	}
	return out, nil
}
