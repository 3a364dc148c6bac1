package mongo

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/apothecary"
	"github.com/xraph/apothecary/cart"
	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/ledger"
	"github.com/xraph/apothecary/search"
	"github.com/xraph/apothecary/types"
)

// repo implements store.Repository. Inside Atomic the context carries
// the session, so the same repo serves both standalone and atomic calls.
type repo struct {
	db *mongo.Database
}

func (r *repo) col(name string) *mongo.Collection { return r.db.Collection(name) }

// ==================== Cart Store ====================

func (r *repo) CreateCart(ctx context.Context, c *cart.Cart) error {
	if _, err := r.col(colCarts).InsertOne(ctx, toCartModel(c)); err != nil {
		return fmt.Errorf("apothecary/mongo: create cart: %w", err)
	}
	return nil
}

func (r *repo) GetCart(ctx context.Context, cartID id.CartID) (*cart.Cart, error) {
	var m cartModel
	err := r.col(colCarts).FindOne(ctx, bson.M{"_id": cartID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, apothecary.ErrCartNotFound
		}
		return nil, fmt.Errorf("apothecary/mongo: get cart: %w", err)
	}
	c, err := fromCartModel(&m)
	if err != nil {
		return nil, fmt.Errorf("apothecary/mongo: get cart: %w", err)
	}
	return c, nil
}

func (r *repo) UpsertLineItem(ctx context.Context, cartID id.CartID, li cart.LineItem) error {
	now := time.Now().UTC()
	res, err := r.col(colCarts).UpdateOne(ctx,
		bson.M{"_id": cartID.String(), "items.sku": li.SKU},
		bson.M{"$set": bson.M{"items.$.quantity": li.Quantity, "updated_at": now}})
	if err != nil {
		return fmt.Errorf("apothecary/mongo: update line item: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	res, err = r.col(colCarts).UpdateOne(ctx,
		bson.M{"_id": cartID.String(), "items.sku": bson.M{"$ne": li.SKU}},
		bson.M{
			"$push": bson.M{"items": lineItemModel{SKU: li.SKU, Quantity: li.Quantity}},
			"$set":  bson.M{"updated_at": now},
		})
	if err != nil {
		return fmt.Errorf("apothecary/mongo: push line item: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.cartExists(ctx, cartID)
	}
	return nil
}

func (r *repo) DeleteLineItem(ctx context.Context, cartID id.CartID, sku string) error {
	res, err := r.col(colCarts).UpdateOne(ctx,
		bson.M{"_id": cartID.String()},
		bson.M{
			"$pull": bson.M{"items": bson.M{"sku": sku}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return fmt.Errorf("apothecary/mongo: delete line item: %w", err)
	}
	if res.MatchedCount == 0 {
		return apothecary.ErrCartNotFound
	}
	return nil
}

func (r *repo) SettleCart(ctx context.Context, cartID id.CartID, payment string, txID id.TransactionID) error {
	res, err := r.col(colCarts).UpdateOne(ctx,
		bson.M{"_id": cartID.String(), "transaction_id": nil},
		bson.M{"$set": bson.M{
			"payment":        payment,
			"transaction_id": txID.String(),
			"updated_at":     time.Now().UTC(),
		}})
	if err != nil {
		return fmt.Errorf("apothecary/mongo: settle cart: %w", err)
	}
	if res.MatchedCount == 0 {
		if err := r.cartExists(ctx, cartID); err != nil {
			return err
		}
		return apothecary.ErrCartAlreadySettled
	}
	return nil
}

func (r *repo) cartExists(ctx context.Context, cartID id.CartID) error {
	n, err := r.col(colCarts).CountDocuments(ctx, bson.M{"_id": cartID.String()})
	if err != nil {
		return fmt.Errorf("apothecary/mongo: find cart: %w", err)
	}
	if n == 0 {
		return apothecary.ErrCartNotFound
	}
	return nil
}

// ==================== Item Store ====================

// PutItem replaces the item's description and prices and keeps its sales.
func (r *repo) PutItem(ctx context.Context, it *item.Item) error {
	_, err := r.col(colItems).UpdateOne(ctx,
		bson.M{"_id": it.SKU},
		bson.M{
			"$set": bson.M{
				"name":        it.Name,
				"potion_type": [4]int(it.PotionType),
				"prices":      pricesDoc(it),
				"updated_at":  it.UpdatedAt,
			},
			"$setOnInsert": bson.M{
				"sold":       bson.M{},
				"created_at": it.CreatedAt,
			},
		},
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("apothecary/mongo: put item: %w", err)
	}
	return nil
}

func (r *repo) GetItem(ctx context.Context, sku string) (*item.Item, error) {
	var m itemModel
	err := r.col(colItems).FindOne(ctx, bson.M{"_id": sku}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, apothecary.ErrItemNotFound
		}
		return nil, fmt.Errorf("apothecary/mongo: get item: %w", err)
	}
	return fromItemModel(&m), nil
}

func (r *repo) ListItems(ctx context.Context) ([]*item.Item, error) {
	cursor, err := r.col(colItems).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("apothecary/mongo: list items: %w", err)
	}
	var models []itemModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("apothecary/mongo: list items: %w", err)
	}

	items := make([]*item.Item, 0, len(models))
	for i := range models {
		items = append(items, fromItemModel(&models[i]))
	}
	return items, nil
}

func (r *repo) IncrementSold(ctx context.Context, sku string, day types.DayOfWeek, qty int64) error {
	res, err := r.col(colItems).UpdateOne(ctx,
		bson.M{"_id": sku},
		bson.M{"$inc": bson.M{"sold." + string(day): qty}})
	if err != nil {
		return fmt.Errorf("apothecary/mongo: increment sold: %w", err)
	}
	if res.MatchedCount == 0 {
		return apothecary.ErrItemNotFound
	}
	return nil
}

// ==================== Ledger Store ====================

func (r *repo) AppendTransaction(ctx context.Context, tx *ledger.Transaction) error {
	if _, err := r.col(colTransactions).InsertOne(ctx, toTransactionModel(tx)); err != nil {
		return fmt.Errorf("apothecary/mongo: append transaction: %w", err)
	}
	return nil
}

func (r *repo) GetTransaction(ctx context.Context, txID id.TransactionID) (*ledger.Transaction, error) {
	var m transactionModel
	err := r.col(colTransactions).FindOne(ctx, bson.M{"_id": txID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, apothecary.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("apothecary/mongo: get transaction: %w", err)
	}
	tx, err := fromTransactionModel(&m)
	if err != nil {
		return nil, fmt.Errorf("apothecary/mongo: get transaction: %w", err)
	}
	return tx, nil
}

func (r *repo) requireParent(ctx context.Context, txID id.TransactionID, kind ledger.Kind) error {
	n, err := r.col(colTransactions).CountDocuments(ctx, bson.M{"_id": txID.String(), "kind": string(kind)})
	if err != nil {
		return fmt.Errorf("apothecary/mongo: find transaction: %w", err)
	}
	if n == 0 {
		return apothecary.Errorf(apothecary.KindTransactionNotFound, "no %s transaction %s", kind, txID)
	}
	return nil
}

func (r *repo) AppendGoldEntries(ctx context.Context, txID id.TransactionID, entries []ledger.GoldEntry) error {
	if err := r.requireParent(ctx, txID, ledger.KindGlobal); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	docs := make([]any, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, goldEntryModel{
			ID:            e.ID.String(),
			TransactionID: txID.String(),
			Delta:         int64(e.Delta),
			CreatedAt:     e.CreatedAt,
		})
	}
	if _, err := r.col(colGoldEntries).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("apothecary/mongo: append gold entries: %w", err)
	}
	return nil
}

func (r *repo) AppendItemEntries(ctx context.Context, txID id.TransactionID, entries []ledger.ItemEntry) error {
	if err := r.requireParent(ctx, txID, ledger.KindItem); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	docs := make([]any, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, itemEntryModel{
			ID:            e.ID.String(),
			TransactionID: txID.String(),
			SKU:           e.SKU,
			Delta:         e.Delta,
			CreatedAt:     e.CreatedAt,
		})
	}
	if _, err := r.col(colItemEntries).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("apothecary/mongo: append item entries: %w", err)
	}
	return nil
}

type sumRow struct {
	Key   string `bson:"_id"`
	Total int64  `bson:"total"`
}

// sum groups the deltas of col matching filter by groupKey ("" groups
// everything together).
func (r *repo) sum(ctx context.Context, col string, filter bson.M, groupKey string) ([]sumRow, error) {
	var key any
	if groupKey != "" {
		key = "$" + groupKey
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: key},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$delta"}}},
		}}},
	}
	cursor, err := r.col(col).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []sumRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CurrentStock(ctx context.Context, sku string) (int64, error) {
	rows, err := r.sum(ctx, colItemEntries, bson.M{"sku": sku}, "")
	if err != nil {
		return 0, fmt.Errorf("apothecary/mongo: current stock: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (r *repo) StockLevels(ctx context.Context) (map[string]int64, error) {
	rows, err := r.sum(ctx, colItemEntries, bson.M{}, "sku")
	if err != nil {
		return nil, fmt.Errorf("apothecary/mongo: stock levels: %w", err)
	}
	levels := make(map[string]int64, len(rows))
	for _, row := range rows {
		levels[row.Key] = row.Total
	}
	return levels, nil
}

func (r *repo) GoldBalance(ctx context.Context) (types.Gold, error) {
	rows, err := r.sum(ctx, colGoldEntries, bson.M{}, "")
	if err != nil {
		return 0, fmt.Errorf("apothecary/mongo: gold balance: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return types.Gold(rows[0].Total), nil
}

// ==================== Search ====================

var sortField = map[search.SortColumn]string{
	search.SortCustomerName:  "customer",
	search.SortItemSKU:       "sku",
	search.SortLineItemTotal: "total",
	search.SortTimestamp:     "timestamp",
}

func lookup(from, local, foreign, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: from},
		{Key: "localField", Value: local},
		{Key: "foreignField", Value: foreign},
		{Key: "as", Value: as},
	}}}
}

func unwind(path string) bson.D {
	return bson.D{{Key: "$unwind", Value: "$" + path}}
}

func contains(s string) bson.Regex {
	return bson.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// SearchLineItems joins item entries to their checkout: entry, item
// transaction, settled cart, then the cart's global transaction and its
// gold. Entries with the same sort key keep insertion order by _id.
func (r *repo) SearchLineItems(ctx context.Context, q search.Query, offset, limit int) ([]search.LineItem, error) {
	field, ok := sortField[q.Sort]
	if !ok {
		return nil, apothecary.Errorf(apothecary.KindInvalidInput, "unknown sort column %q", q.Sort)
	}
	dir := -1
	if q.Order == search.OrderAsc {
		dir = 1
	}

	match := bson.M{}
	if q.Customer != "" {
		match["customer"] = contains(q.Customer)
	}
	if q.SKU != "" {
		match["sku"] = contains(q.SKU)
	}

	pipeline := mongo.Pipeline{
		lookup(colTransactions, "transaction_id", "_id", "itx"),
		unwind("itx"),
		{{Key: "$match", Value: bson.M{"itx.cart_id": bson.M{"$exists": true}}}},
		lookup(colCarts, "itx.cart_id", "_id", "cart"),
		unwind("cart"),
		{{Key: "$match", Value: bson.M{"cart.transaction_id": bson.M{"$exists": true}}}},
		lookup(colTransactions, "cart.transaction_id", "_id", "gtx"),
		unwind("gtx"),
		lookup(colGoldEntries, "gtx._id", "transaction_id", "gold"),
		{{Key: "$match", Value: bson.M{"gold": bson.M{"$ne": bson.A{}}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "transaction_id", Value: 1},
			{Key: "cart_id", Value: "$cart._id"},
			{Key: "sku", Value: 1},
			{Key: "customer", Value: "$cart.customer"},
			{Key: "delta", Value: 1},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$gold.delta"}}},
			{Key: "timestamp", Value: "$gtx.created_at"},
		}}},
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: field, Value: dir}, {Key: "_id", Value: 1}}}},
		{{Key: "$skip", Value: int64(offset)}},
		{{Key: "$limit", Value: int64(limit)}},
	}

	cursor, err := r.col(colItemEntries).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("apothecary/mongo: search: %w", err)
	}
	var rows []searchRowModel
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("apothecary/mongo: search: %w", err)
	}

	out := make([]search.LineItem, 0, len(rows))
	for _, row := range rows {
		li, err := toSearchLineItem(&row)
		if err != nil {
			return nil, fmt.Errorf("apothecary/mongo: search: %w", err)
		}
		out = append(out, li)
	}
	return out, nil
}

func toSearchLineItem(m *searchRowModel) (search.LineItem, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return search.LineItem{}, err
	}
	txID, err := id.ParseTransactionID(m.TransactionID)
	if err != nil {
		return search.LineItem{}, err
	}
	cartID, err := id.ParseCartID(m.CartID)
	if err != nil {
		return search.LineItem{}, err
	}
	return search.LineItem{
		LineItemID:    entryID,
		TransactionID: txID,
		CartID:        cartID,
		SKU:           m.SKU,
		Customer:      m.Customer,
		Quantity:      -m.Delta,
		LineItemTotal: types.Gold(m.Total),
		Timestamp:     m.Timestamp.UTC(),
	}, nil
}
