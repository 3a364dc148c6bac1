package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/apothecary"
	"github.com/xraph/apothecary/cart"
	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/ledger"
	"github.com/xraph/apothecary/search"
	"github.com/xraph/apothecary/types"
)

// repo runs every Repository method against one querier: the database
// for standalone calls, a transaction inside Atomic.
type repo struct {
	q querier
}

// ==================== Cart Store ====================

func (r *repo) CreateCart(ctx context.Context, c *cart.Cart) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO apothecary_carts (id, customer, created_at, updated_at)
VALUES (?, ?, ?, ?)`,
		c.ID, c.Customer, toMicro(c.CreatedAt), toMicro(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("apothecary/sqlite: create cart: %w", err)
	}
	for i, li := range c.Items {
		if _, err := r.q.ExecContext(ctx, `
INSERT INTO apothecary_cart_items (cart_id, sku, quantity, position)
VALUES (?, ?, ?, ?)`, c.ID, li.SKU, li.Quantity, i+1); err != nil {
			return fmt.Errorf("apothecary/sqlite: create cart item: %w", err)
		}
	}
	return nil
}

func (r *repo) GetCart(ctx context.Context, cartID id.CartID) (*cart.Cart, error) {
	c := &cart.Cart{}
	var payment *string
	var createdAt, updatedAt int64
	err := r.q.QueryRowContext(ctx, `
SELECT id, customer, payment, transaction_id, created_at, updated_at
FROM apothecary_carts WHERE id = ?`, cartID).
		Scan(&c.ID, &c.Customer, &payment, &c.TransactionID, &createdAt, &updatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apothecary.ErrCartNotFound
		}
		return nil, fmt.Errorf("apothecary/sqlite: get cart: %w", err)
	}
	if payment != nil {
		c.Payment = *payment
	}
	c.CreatedAt, c.UpdatedAt = fromMicro(createdAt), fromMicro(updatedAt)

	rows, err := r.q.QueryContext(ctx, `
SELECT sku, quantity FROM apothecary_cart_items
WHERE cart_id = ? ORDER BY position`, cartID)
	if err != nil {
		return nil, fmt.Errorf("apothecary/sqlite: get cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var li cart.LineItem
		if err := rows.Scan(&li.SKU, &li.Quantity); err != nil {
			return nil, fmt.Errorf("apothecary/sqlite: scan cart item: %w", err)
		}
		c.Items = append(c.Items, li)
	}
	return c, rows.Err()
}

func (r *repo) cartExists(ctx context.Context, cartID id.CartID) error {
	var one int
	err := r.q.QueryRowContext(ctx, `SELECT 1 FROM apothecary_carts WHERE id = ?`, cartID).Scan(&one)
	if err != nil {
		if isNoRows(err) {
			return apothecary.ErrCartNotFound
		}
		return fmt.Errorf("apothecary/sqlite: find cart: %w", err)
	}
	return nil
}

func (r *repo) UpsertLineItem(ctx context.Context, cartID id.CartID, li cart.LineItem) error {
	if err := r.cartExists(ctx, cartID); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, `
INSERT INTO apothecary_cart_items (cart_id, sku, quantity, position)
VALUES (?1, ?2, ?3, COALESCE((SELECT MAX(position) FROM apothecary_cart_items WHERE cart_id = ?1), 0) + 1)
ON CONFLICT (cart_id, sku) DO UPDATE SET quantity = excluded.quantity`,
		cartID, li.SKU, li.Quantity)
	if err != nil {
		return fmt.Errorf("apothecary/sqlite: upsert line item: %w", err)
	}
	return nil
}

func (r *repo) DeleteLineItem(ctx context.Context, cartID id.CartID, sku string) error {
	if err := r.cartExists(ctx, cartID); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, `DELETE FROM apothecary_cart_items WHERE cart_id = ? AND sku = ?`, cartID, sku)
	if err != nil {
		return fmt.Errorf("apothecary/sqlite: delete line item: %w", err)
	}
	return nil
}

func (r *repo) SettleCart(ctx context.Context, cartID id.CartID, payment string, txID id.TransactionID) error {
	res, err := r.q.ExecContext(ctx, `
UPDATE apothecary_carts SET payment = ?, transaction_id = ?, updated_at = ?
WHERE id = ? AND transaction_id IS NULL`, payment, txID, toMicro(time.Now()), cartID)
	if err != nil {
		return fmt.Errorf("apothecary/sqlite: settle cart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apothecary/sqlite: settle cart: %w", err)
	}
	if n == 0 {
		if err := r.cartExists(ctx, cartID); err != nil {
			return err
		}
		return apothecary.ErrCartAlreadySettled
	}
	return nil
}

// ==================== Item Store ====================

func (r *repo) PutItem(ctx context.Context, it *item.Item) error {
	pt := it.PotionType
	_, err := r.q.ExecContext(ctx, `
INSERT INTO apothecary_items (sku, name, red, green, blue, dark, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (sku) DO UPDATE SET
    name = excluded.name, red = excluded.red, green = excluded.green,
    blue = excluded.blue, dark = excluded.dark, updated_at = excluded.updated_at`,
		it.SKU, it.Name, pt[0], pt[1], pt[2], pt[3], toMicro(it.CreatedAt), toMicro(it.UpdatedAt))
	if err != nil {
		return fmt.Errorf("apothecary/sqlite: put item: %w", err)
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM apothecary_item_prices WHERE sku = ?`, it.SKU); err != nil {
		return fmt.Errorf("apothecary/sqlite: clear prices: %w", err)
	}
	for day, price := range it.PriceByDay {
		if _, err := r.q.ExecContext(ctx, `
INSERT INTO apothecary_item_prices (sku, day, price) VALUES (?, ?, ?)`,
			it.SKU, string(day), int64(price)); err != nil {
			return fmt.Errorf("apothecary/sqlite: put price: %w", err)
		}
	}
	return nil
}

func (r *repo) GetItem(ctx context.Context, sku string) (*item.Item, error) {
	items, err := r.loadItems(ctx, `WHERE sku = ?`, sku)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apothecary.ErrItemNotFound
	}
	return items[0], nil
}

func (r *repo) ListItems(ctx context.Context) ([]*item.Item, error) {
	return r.loadItems(ctx, ``)
}

func (r *repo) loadItems(ctx context.Context, where string, args ...any) ([]*item.Item, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT sku, name, red, green, blue, dark, created_at, updated_at
FROM apothecary_items `+where+` ORDER BY sku`, args...)
	if err != nil {
		return nil, fmt.Errorf("apothecary/sqlite: list items: %w", err)
	}

	var items []*item.Item
	bySKU := make(map[string]*item.Item)
	for rows.Next() {
		it := &item.Item{
			PriceByDay: make(map[types.DayOfWeek]types.Gold),
			SoldByDay:  make(map[types.DayOfWeek]int64),
		}
		pt := &it.PotionType
		var createdAt, updatedAt int64
		if err := rows.Scan(&it.SKU, &it.Name, &pt[0], &pt[1], &pt[2], &pt[3], &createdAt, &updatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("apothecary/sqlite: scan item: %w", err)
		}
		it.CreatedAt, it.UpdatedAt = fromMicro(createdAt), fromMicro(updatedAt)
		items = append(items, it)
		bySKU[it.SKU] = it
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("apothecary/sqlite: list items: %w", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	// The single connection must be free before the next query runs.
	if err := r.loadDayTable(ctx, `SELECT sku, day, price FROM apothecary_item_prices `+where, args, func(sku string, day types.DayOfWeek, v int64) {
		if it, ok := bySKU[sku]; ok {
			it.PriceByDay[day] = types.Gold(v)
		}
	}); err != nil {
		return nil, err
	}
	if err := r.loadDayTable(ctx, `SELECT sku, day, sold FROM apothecary_item_sales `+where, args, func(sku string, day types.DayOfWeek, v int64) {
		if it, ok := bySKU[sku]; ok {
			it.SoldByDay[day] = v
		}
	}); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) loadDayTable(ctx context.Context, query string, args []any, set func(string, types.DayOfWeek, int64)) error {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("apothecary/sqlite: load day table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sku, day string
		var v int64
		if err := rows.Scan(&sku, &day, &v); err != nil {
			return fmt.Errorf("apothecary/sqlite: scan day table: %w", err)
		}
		set(sku, types.DayOfWeek(day), v)
	}
	return rows.Err()
}

func (r *repo) IncrementSold(ctx context.Context, sku string, day types.DayOfWeek, qty int64) error {
	var one int
	if err := r.q.QueryRowContext(ctx, `SELECT 1 FROM apothecary_items WHERE sku = ?`, sku).Scan(&one); err != nil {
		if isNoRows(err) {
			return apothecary.ErrItemNotFound
		}
		return fmt.Errorf("apothecary/sqlite: find item: %w", err)
	}
	_, err := r.q.ExecContext(ctx, `
INSERT INTO apothecary_item_sales (sku, day, sold) VALUES (?, ?, ?)
ON CONFLICT (sku, day) DO UPDATE SET sold = sold + excluded.sold`,
		sku, string(day), qty)
	if err != nil {
		return fmt.Errorf("apothecary/sqlite: increment sold: %w", err)
	}
	return nil
}

// ==================== Ledger Store ====================

func (r *repo) AppendTransaction(ctx context.Context, tx *ledger.Transaction) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO apothecary_transactions (id, kind, description, parent_id, cart_id, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		tx.ID, string(tx.Kind), tx.Description, tx.ParentID, tx.CartID, toMicro(tx.CreatedAt))
	if err != nil {
		return fmt.Errorf("apothecary/sqlite: append transaction: %w", err)
	}
	return nil
}

func (r *repo) GetTransaction(ctx context.Context, txID id.TransactionID) (*ledger.Transaction, error) {
	tx := &ledger.Transaction{}
	var kind string
	var createdAt int64
	err := r.q.QueryRowContext(ctx, `
SELECT id, kind, description, parent_id, cart_id, created_at
FROM apothecary_transactions WHERE id = ?`, txID).
		Scan(&tx.ID, &kind, &tx.Description, &tx.ParentID, &tx.CartID, &createdAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apothecary.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("apothecary/sqlite: get transaction: %w", err)
	}
	tx.Kind = ledger.Kind(kind)
	tx.CreatedAt = fromMicro(createdAt)
	return tx, nil
}

func (r *repo) requireParent(ctx context.Context, txID id.TransactionID, kind ledger.Kind) error {
	var got string
	err := r.q.QueryRowContext(ctx, `SELECT kind FROM apothecary_transactions WHERE id = ?`, txID).Scan(&got)
	if err != nil && !isNoRows(err) {
		return fmt.Errorf("apothecary/sqlite: find transaction: %w", err)
	}
	if err != nil || ledger.Kind(got) != kind {
		return apothecary.Errorf(apothecary.KindTransactionNotFound, "no %s transaction %s", kind, txID)
	}
	return nil
}

func (r *repo) AppendGoldEntries(ctx context.Context, txID id.TransactionID, entries []ledger.GoldEntry) error {
	if err := r.requireParent(ctx, txID, ledger.KindGlobal); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := r.q.ExecContext(ctx, `
INSERT INTO apothecary_gold_entries (id, transaction_id, delta, created_at)
VALUES (?, ?, ?, ?)`, e.ID, txID, int64(e.Delta), toMicro(e.CreatedAt)); err != nil {
			return fmt.Errorf("apothecary/sqlite: append gold entry: %w", err)
		}
	}
	return nil
}

func (r *repo) AppendItemEntries(ctx context.Context, txID id.TransactionID, entries []ledger.ItemEntry) error {
	if err := r.requireParent(ctx, txID, ledger.KindItem); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := r.q.ExecContext(ctx, `
INSERT INTO apothecary_item_entries (id, transaction_id, sku, delta, created_at)
VALUES (?, ?, ?, ?, ?)`, e.ID, txID, e.SKU, e.Delta, toMicro(e.CreatedAt)); err != nil {
			return fmt.Errorf("apothecary/sqlite: append item entry: %w", err)
		}
	}
	return nil
}

func (r *repo) CurrentStock(ctx context.Context, sku string) (int64, error) {
	var total int64
	err := r.q.QueryRowContext(ctx, `
SELECT COALESCE(SUM(delta), 0) FROM apothecary_item_entries WHERE sku = ?`, sku).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("apothecary/sqlite: current stock: %w", err)
	}
	return total, nil
}

func (r *repo) StockLevels(ctx context.Context) (map[string]int64, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT sku, SUM(delta) FROM apothecary_item_entries GROUP BY sku`)
	if err != nil {
		return nil, fmt.Errorf("apothecary/sqlite: stock levels: %w", err)
	}
	defer rows.Close()

	levels := make(map[string]int64)
	for rows.Next() {
		var sku string
		var total int64
		if err := rows.Scan(&sku, &total); err != nil {
			return nil, fmt.Errorf("apothecary/sqlite: scan stock level: %w", err)
		}
		levels[sku] = total
	}
	return levels, rows.Err()
}

func (r *repo) GoldBalance(ctx context.Context) (types.Gold, error) {
	var total int64
	if err := r.q.QueryRowContext(ctx, `
SELECT COALESCE(SUM(delta), 0) FROM apothecary_gold_entries`).Scan(&total); err != nil {
		return 0, fmt.Errorf("apothecary/sqlite: gold balance: %w", err)
	}
	return types.Gold(total), nil
}

// ==================== Search ====================

var sortExpr = map[search.SortColumn]string{
	search.SortCustomerName:  "c.customer",
	search.SortItemSKU:       "ie.sku",
	search.SortLineItemTotal: "g.total",
	search.SortTimestamp:     "gtx.created_at",
}

func (r *repo) SearchLineItems(ctx context.Context, q search.Query, offset, limit int) ([]search.LineItem, error) {
	col, ok := sortExpr[q.Sort]
	if !ok {
		return nil, apothecary.Errorf(apothecary.KindInvalidInput, "unknown sort column %q", q.Sort)
	}
	dir := "DESC"
	if q.Order == search.OrderAsc {
		dir = "ASC"
	}

	// Both sides go through the fold scalar: LIKE alone folds ASCII only.
	var where []string
	var args []any
	if q.Customer != "" {
		where = append(where, foldFunc+`(c.customer) LIKE `+foldFunc+`(?) ESCAPE '\'`)
		args = append(args, "%"+search.EscapeLike(q.Customer)+"%")
	}
	if q.SKU != "" {
		where = append(where, foldFunc+`(ie.sku) LIKE `+foldFunc+`(?) ESCAPE '\'`)
		args = append(args, "%"+search.EscapeLike(q.SKU)+"%")
	}

	query := `
SELECT ie.id, itx.id, c.id, ie.sku, c.customer, -ie.delta, g.total, gtx.created_at
FROM apothecary_item_entries ie
JOIN apothecary_transactions itx ON itx.id = ie.transaction_id
JOIN apothecary_carts c ON c.id = itx.cart_id
JOIN apothecary_transactions gtx ON gtx.id = c.transaction_id
JOIN (
    SELECT transaction_id, SUM(delta) AS total
    FROM apothecary_gold_entries GROUP BY transaction_id
) g ON g.transaction_id = gtx.id`
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf("\nORDER BY %s %s, ie.seq ASC\nLIMIT ? OFFSET ?", col, dir)
	args = append(args, limit, offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("apothecary/sqlite: search: %w", err)
	}
	defer rows.Close()

	out := make([]search.LineItem, 0, limit)
	for rows.Next() {
		var li search.LineItem
		var total, ts int64
		if err := rows.Scan(&li.LineItemID, &li.TransactionID, &li.CartID, &li.SKU, &li.Customer,
			&li.Quantity, &total, &ts); err != nil {
			return nil, fmt.Errorf("apothecary/sqlite: scan search row: %w", err)
		}
		li.LineItemTotal = types.Gold(total)
		li.Timestamp = fromMicro(ts)
		out = append(out, li)
	}
	return out, rows.Err()
}
