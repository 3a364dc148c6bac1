package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/apothecary/cart"
	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/ledger"
	"github.com/xraph/apothecary/types"
)

// ==================== Item models ====================

type itemModel struct {
	SKU        string           `bson:"_id"`
	Name       string           `bson:"name"`
	PotionType [4]int           `bson:"potion_type"`
	Prices     map[string]int64 `bson:"prices"`
	Sold       map[string]int64 `bson:"sold"`
	CreatedAt  time.Time        `bson:"created_at"`
	UpdatedAt  time.Time        `bson:"updated_at"`
}

func fromItemModel(m *itemModel) *item.Item {
	it := &item.Item{
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		SKU:        m.SKU,
		Name:       m.Name,
		PotionType: item.PotionType(m.PotionType),
		PriceByDay: make(map[types.DayOfWeek]types.Gold, len(m.Prices)),
		SoldByDay:  make(map[types.DayOfWeek]int64, len(m.Sold)),
	}
	for day, v := range m.Prices {
		it.PriceByDay[types.DayOfWeek(day)] = types.Gold(v)
	}
	for day, v := range m.Sold {
		it.SoldByDay[types.DayOfWeek(day)] = v
	}
	return it
}

func pricesDoc(it *item.Item) map[string]int64 {
	out := make(map[string]int64, len(it.PriceByDay))
	for day, price := range it.PriceByDay {
		out[string(day)] = int64(price)
	}
	return out
}

// ==================== Cart models ====================

type cartModel struct {
	ID            string          `bson:"_id"`
	Customer      string          `bson:"customer"`
	Items         []lineItemModel `bson:"items"`
	Payment       string          `bson:"payment,omitempty"`
	TransactionID string          `bson:"transaction_id,omitempty"`
	CreatedAt     time.Time       `bson:"created_at"`
	UpdatedAt     time.Time       `bson:"updated_at"`
}

type lineItemModel struct {
	SKU      string `bson:"sku"`
	Quantity int64  `bson:"quantity"`
}

func toCartModel(c *cart.Cart) *cartModel {
	items := make([]lineItemModel, 0, len(c.Items))
	for _, li := range c.Items {
		items = append(items, lineItemModel{SKU: li.SKU, Quantity: li.Quantity})
	}
	return &cartModel{
		ID:            c.ID.String(),
		Customer:      c.Customer,
		Items:         items,
		Payment:       c.Payment,
		TransactionID: c.TransactionID.String(),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func fromCartModel(m *cartModel) (*cart.Cart, error) {
	cartID, err := id.ParseCartID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse cart id: %w", err)
	}
	txID, err := parseOptionalID(m.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("parse cart transaction id: %w", err)
	}
	c := &cart.Cart{
		Entity:        types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:            cartID,
		Customer:      m.Customer,
		Payment:       m.Payment,
		TransactionID: txID,
	}
	for _, li := range m.Items {
		c.Items = append(c.Items, cart.LineItem{SKU: li.SKU, Quantity: li.Quantity})
	}
	return c, nil
}

// ==================== Ledger models ====================

type transactionModel struct {
	ID          string    `bson:"_id"`
	Kind        string    `bson:"kind"`
	Description string    `bson:"description"`
	ParentID    string    `bson:"parent_id,omitempty"`
	CartID      string    `bson:"cart_id,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

func toTransactionModel(tx *ledger.Transaction) *transactionModel {
	return &transactionModel{
		ID:          tx.ID.String(),
		Kind:        string(tx.Kind),
		Description: tx.Description,
		ParentID:    tx.ParentID.String(),
		CartID:      tx.CartID.String(),
		CreatedAt:   tx.CreatedAt,
	}
}

func fromTransactionModel(m *transactionModel) (*ledger.Transaction, error) {
	txID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse transaction id: %w", err)
	}
	parentID, err := parseOptionalID(m.ParentID)
	if err != nil {
		return nil, fmt.Errorf("parse parent id: %w", err)
	}
	cartID, err := parseOptionalID(m.CartID)
	if err != nil {
		return nil, fmt.Errorf("parse cart id: %w", err)
	}
	return &ledger.Transaction{
		ID:          txID,
		Kind:        ledger.Kind(m.Kind),
		Description: m.Description,
		ParentID:    parentID,
		CartID:      cartID,
		CreatedAt:   m.CreatedAt,
	}, nil
}

type goldEntryModel struct {
	ID            string    `bson:"_id"`
	TransactionID string    `bson:"transaction_id"`
	Delta         int64     `bson:"delta"`
	CreatedAt     time.Time `bson:"created_at"`
}

type itemEntryModel struct {
	ID            string    `bson:"_id"`
	TransactionID string    `bson:"transaction_id"`
	SKU           string    `bson:"sku"`
	Delta         int64     `bson:"delta"`
	CreatedAt     time.Time `bson:"created_at"`
}

// searchRowModel is the projection produced by the search pipeline.
type searchRowModel struct {
	ID            string    `bson:"_id"`
	TransactionID string    `bson:"transaction_id"`
	CartID        string    `bson:"cart_id"`
	SKU           string    `bson:"sku"`
	Customer      string    `bson:"customer"`
	Delta         int64     `bson:"delta"`
	Total         int64     `bson:"total"`
	Timestamp     time.Time `bson:"timestamp"`
}

func parseOptionalID(s string) (id.ID, error) {
	if s == "" {
		return id.Nil, nil
	}
	return id.Parse(s)
}
