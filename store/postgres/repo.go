package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/apothecary"
	"github.com/xraph/apothecary/cart"
	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/ledger"
	"github.com/xraph/apothecary/search"
	"github.com/xraph/apothecary/types"
)

// repo runs every Repository method against one querier: the grove pool
// for standalone calls, a grove transaction inside Atomic.
type repo struct {
	q querier
}

// ==================== Cart Store ====================

func (r *repo) CreateCart(ctx context.Context, c *cart.Cart) error {
	if _, err := r.q.NewInsert(toCartModel(c)).Exec(ctx); err != nil {
		return fmt.Errorf("apothecary/postgres: create cart: %w", err)
	}
	for i, li := range c.Items {
		m := &cartItemModel{CartID: c.ID.String(), SKU: li.SKU, Quantity: li.Quantity, Position: int64(i + 1)}
		if _, err := r.q.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("apothecary/postgres: create cart item: %w", err)
		}
	}
	return nil
}

func (r *repo) GetCart(ctx context.Context, cartID id.CartID) (*cart.Cart, error) {
	m := new(cartModel)
	err := r.q.NewSelect(m).
		Where("id = $1", cartID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, apothecary.ErrCartNotFound
		}
		return nil, fmt.Errorf("apothecary/postgres: get cart: %w", err)
	}

	var items []cartItemModel
	err = r.q.NewSelect(&items).
		Where("cart_id = $1", cartID.String()).
		OrderExpr("position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("apothecary/postgres: get cart items: %w", err)
	}
	return fromCartModel(m, items)
}

func (r *repo) cartExists(ctx context.Context, cartID id.CartID) error {
	var one int
	err := r.q.NewRaw(`SELECT 1 FROM apothecary_carts WHERE id = $1`, cartID.String()).Scan(ctx, &one)
	if err != nil {
		if isNoRows(err) {
			return apothecary.ErrCartNotFound
		}
		return fmt.Errorf("apothecary/postgres: find cart: %w", err)
	}
	return nil
}

func (r *repo) UpsertLineItem(ctx context.Context, cartID id.CartID, li cart.LineItem) error {
	if err := r.cartExists(ctx, cartID); err != nil {
		return err
	}
	_, err := r.q.NewRaw(`
INSERT INTO apothecary_cart_items (cart_id, sku, quantity, position)
VALUES ($1, $2, $3, COALESCE((SELECT MAX(position) FROM apothecary_cart_items WHERE cart_id = $1), 0) + 1)
ON CONFLICT (cart_id, sku) DO UPDATE SET quantity = EXCLUDED.quantity`,
		cartID.String(), li.SKU, li.Quantity).Exec(ctx)
	if err != nil {
		return fmt.Errorf("apothecary/postgres: upsert line item: %w", err)
	}
	return nil
}

func (r *repo) DeleteLineItem(ctx context.Context, cartID id.CartID, sku string) error {
	if err := r.cartExists(ctx, cartID); err != nil {
		return err
	}
	_, err := r.q.NewDelete((*cartItemModel)(nil)).
		Where("cart_id = $1", cartID.String()).
		Where("sku = $2", sku).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("apothecary/postgres: delete line item: %w", err)
	}
	return nil
}

func (r *repo) SettleCart(ctx context.Context, cartID id.CartID, payment string, txID id.TransactionID) error {
	res, err := r.q.NewRaw(`
UPDATE apothecary_carts SET payment = $2, transaction_id = $3, updated_at = NOW()
WHERE id = $1 AND transaction_id IS NULL`, cartID.String(), payment, txID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("apothecary/postgres: settle cart: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apothecary/postgres: settle cart: %w", err)
	}
	if rows == 0 {
		if err := r.cartExists(ctx, cartID); err != nil {
			return err
		}
		return apothecary.ErrCartAlreadySettled
	}
	return nil
}

// ==================== Item Store ====================

func (r *repo) PutItem(ctx context.Context, it *item.Item) error {
	_, err := r.q.NewInsert(toItemModel(it)).
		OnConflict("(sku) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("red = EXCLUDED.red").
		Set("green = EXCLUDED.green").
		Set("blue = EXCLUDED.blue").
		Set("dark = EXCLUDED.dark").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("apothecary/postgres: put item: %w", err)
	}

	if _, err := r.q.NewRaw(`DELETE FROM apothecary_item_prices WHERE sku = $1`, it.SKU).Exec(ctx); err != nil {
		return fmt.Errorf("apothecary/postgres: clear prices: %w", err)
	}
	for day, price := range it.PriceByDay {
		if _, err := r.q.NewRaw(`
INSERT INTO apothecary_item_prices (sku, day, price) VALUES ($1, $2, $3)`,
			it.SKU, string(day), int64(price)).Exec(ctx); err != nil {
			return fmt.Errorf("apothecary/postgres: put price: %w", err)
		}
	}
	return nil
}

func (r *repo) GetItem(ctx context.Context, sku string) (*item.Item, error) {
	items, err := r.loadItems(ctx, sku)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apothecary.ErrItemNotFound
	}
	return items[0], nil
}

func (r *repo) ListItems(ctx context.Context) ([]*item.Item, error) {
	return r.loadItems(ctx, "")
}

// loadItems reads one item (sku != "") or all of them, with their price
// and sales tables.
func (r *repo) loadItems(ctx context.Context, sku string) ([]*item.Item, error) {
	var where string
	var args []any
	if sku != "" {
		where = " WHERE sku = $1"
		args = []any{sku}
	}

	var models []itemModel
	q := r.q.NewSelect(&models)
	if sku != "" {
		q = q.Where("sku = $1", sku)
	}
	if err := q.OrderExpr("sku ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("apothecary/postgres: list items: %w", err)
	}

	items := make([]*item.Item, 0, len(models))
	bySKU := make(map[string]*item.Item, len(models))
	for i := range models {
		it := fromItemModel(&models[i])
		items = append(items, it)
		bySKU[it.SKU] = it
	}
	if len(items) == 0 {
		return items, nil
	}

	var prices []dayValueModel
	if err := r.q.NewRaw(`SELECT sku, day, price AS value FROM apothecary_item_prices`+where, args...).
		Scan(ctx, &prices); err != nil {
		return nil, fmt.Errorf("apothecary/postgres: load prices: %w", err)
	}
	for _, p := range prices {
		if it, ok := bySKU[p.SKU]; ok {
			it.PriceByDay[types.DayOfWeek(p.Day)] = types.Gold(p.Value)
		}
	}

	var sales []dayValueModel
	if err := r.q.NewRaw(`SELECT sku, day, sold AS value FROM apothecary_item_sales`+where, args...).
		Scan(ctx, &sales); err != nil {
		return nil, fmt.Errorf("apothecary/postgres: load sales: %w", err)
	}
	for _, s := range sales {
		if it, ok := bySKU[s.SKU]; ok {
			it.SoldByDay[types.DayOfWeek(s.Day)] = s.Value
		}
	}
	return items, nil
}

func (r *repo) IncrementSold(ctx context.Context, sku string, day types.DayOfWeek, qty int64) error {
	var one int
	if err := r.q.NewRaw(`SELECT 1 FROM apothecary_items WHERE sku = $1`, sku).Scan(ctx, &one); err != nil {
		if isNoRows(err) {
			return apothecary.ErrItemNotFound
		}
		return fmt.Errorf("apothecary/postgres: find item: %w", err)
	}
	_, err := r.q.NewRaw(`
INSERT INTO apothecary_item_sales (sku, day, sold) VALUES ($1, $2, $3)
ON CONFLICT (sku, day) DO UPDATE SET sold = apothecary_item_sales.sold + EXCLUDED.sold`,
		sku, string(day), qty).Exec(ctx)
	if err != nil {
		return fmt.Errorf("apothecary/postgres: increment sold: %w", err)
	}
	return nil
}

// ==================== Ledger Store ====================

func (r *repo) AppendTransaction(ctx context.Context, tx *ledger.Transaction) error {
	if _, err := r.q.NewInsert(toTransactionModel(tx)).Exec(ctx); err != nil {
		return fmt.Errorf("apothecary/postgres: append transaction: %w", err)
	}
	return nil
}

func (r *repo) GetTransaction(ctx context.Context, txID id.TransactionID) (*ledger.Transaction, error) {
	m := new(transactionModel)
	err := r.q.NewSelect(m).
		Where("id = $1", txID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, apothecary.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("apothecary/postgres: get transaction: %w", err)
	}
	return fromTransactionModel(m)
}

func (r *repo) requireParent(ctx context.Context, txID id.TransactionID, kind ledger.Kind) error {
	var got string
	err := r.q.NewRaw(`SELECT kind FROM apothecary_transactions WHERE id = $1`, txID.String()).Scan(ctx, &got)
	if err != nil && !isNoRows(err) {
		return fmt.Errorf("apothecary/postgres: find transaction: %w", err)
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
		m := &goldEntryModel{ID: e.ID.String(), TransactionID: txID.String(), Delta: int64(e.Delta), CreatedAt: e.CreatedAt}
		if _, err := r.q.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("apothecary/postgres: append gold entry: %w", err)
		}
	}
	return nil
}

func (r *repo) AppendItemEntries(ctx context.Context, txID id.TransactionID, entries []ledger.ItemEntry) error {
	if err := r.requireParent(ctx, txID, ledger.KindItem); err != nil {
		return err
	}
	for _, e := range entries {
		m := &itemEntryModel{ID: e.ID.String(), TransactionID: txID.String(), SKU: e.SKU, Delta: e.Delta, CreatedAt: e.CreatedAt}
		if _, err := r.q.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("apothecary/postgres: append item entry: %w", err)
		}
	}
	return nil
}

func (r *repo) CurrentStock(ctx context.Context, sku string) (int64, error) {
	var total int64
	err := r.q.NewRaw(`
SELECT COALESCE(SUM(delta), 0)::BIGINT FROM apothecary_item_entries WHERE sku = $1`, sku).Scan(ctx, &total)
	if err != nil {
		return 0, fmt.Errorf("apothecary/postgres: current stock: %w", err)
	}
	return total, nil
}

func (r *repo) StockLevels(ctx context.Context) (map[string]int64, error) {
	var rows []stockLevelModel
	if err := r.q.NewRaw(`
SELECT sku, SUM(delta)::BIGINT AS total FROM apothecary_item_entries GROUP BY sku`).Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("apothecary/postgres: stock levels: %w", err)
	}

	levels := make(map[string]int64, len(rows))
	for _, row := range rows {
		levels[row.SKU] = row.Total
	}
	return levels, nil
}

func (r *repo) GoldBalance(ctx context.Context) (types.Gold, error) {
	var total int64
	if err := r.q.NewRaw(`
SELECT COALESCE(SUM(delta), 0)::BIGINT FROM apothecary_gold_entries`).Scan(ctx, &total); err != nil {
		return 0, fmt.Errorf("apothecary/postgres: gold balance: %w", err)
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

	var where []string
	var args []any
	argIdx := 0
	if q.Customer != "" {
		argIdx++
		where = append(where, fmt.Sprintf(`c.customer ILIKE $%d ESCAPE '\'`, argIdx))
		args = append(args, "%"+search.EscapeLike(q.Customer)+"%")
	}
	if q.SKU != "" {
		argIdx++
		where = append(where, fmt.Sprintf(`ie.sku ILIKE $%d ESCAPE '\'`, argIdx))
		args = append(args, "%"+search.EscapeLike(q.SKU)+"%")
	}

	sql := `
SELECT ie.id AS entry_id, itx.id AS transaction_id, c.id AS cart_id, ie.sku, c.customer,
       -ie.delta AS quantity, g.total, gtx.created_at AS timestamp
FROM apothecary_item_entries ie
JOIN apothecary_transactions itx ON itx.id = ie.transaction_id
JOIN apothecary_carts c ON c.id = itx.cart_id
JOIN apothecary_transactions gtx ON gtx.id = c.transaction_id
JOIN (
    SELECT transaction_id, SUM(delta)::BIGINT AS total
    FROM apothecary_gold_entries GROUP BY transaction_id
) g ON g.transaction_id = gtx.id`
	if len(where) > 0 {
		sql += "\nWHERE " + strings.Join(where, " AND ")
	}
	sql += fmt.Sprintf("\nORDER BY %s %s, ie.seq ASC\nLIMIT $%d OFFSET $%d", col, dir, argIdx+1, argIdx+2)
	args = append(args, limit, offset)

	var rows []searchRowModel
	if err := r.q.NewRaw(sql, args...).Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("apothecary/postgres: search: %w", err)
	}

	out := make([]search.LineItem, 0, len(rows))
	for i := range rows {
		li, err := fromSearchRowModel(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("apothecary/postgres: search row: %w", err)
		}
		out = append(out, li)
	}
	return out, nil
}
