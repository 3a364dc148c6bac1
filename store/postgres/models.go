package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/apothecary/cart"
	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/ledger"
	"github.com/xraph/apothecary/search"
	"github.com/xraph/apothecary/types"
)

// ==================== Item models ====================

type itemModel struct {
	grove.BaseModel `grove:"table:apothecary_items"`

	SKU       string    `grove:"sku,pk"`
	Name      string    `grove:"name"`
	Red       int       `grove:"red"`
	Green     int       `grove:"green"`
	Blue      int       `grove:"blue"`
	Dark      int       `grove:"dark"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

// dayValueModel is one row of the price or sales table.
type dayValueModel struct {
	SKU   string `grove:"sku"`
	Day   string `grove:"day"`
	Value int64  `grove:"value"`
}

func toItemModel(it *item.Item) *itemModel {
	pt := it.PotionType
	return &itemModel{
		SKU:       it.SKU,
		Name:      it.Name,
		Red:       pt[0],
		Green:     pt[1],
		Blue:      pt[2],
		Dark:      pt[3],
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
}

func fromItemModel(m *itemModel) *item.Item {
	return &item.Item{
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		SKU:        m.SKU,
		Name:       m.Name,
		PotionType: item.PotionType{m.Red, m.Green, m.Blue, m.Dark},
		PriceByDay: make(map[types.DayOfWeek]types.Gold),
		SoldByDay:  make(map[types.DayOfWeek]int64),
	}
}

// ==================== Cart models ====================

type cartModel struct {
	grove.BaseModel `grove:"table:apothecary_carts"`

	ID            string    `grove:"id,pk"`
	Customer      string    `grove:"customer"`
	Payment       *string   `grove:"payment"`
	TransactionID *string   `grove:"transaction_id"`
	CreatedAt     time.Time `grove:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"`
}

type cartItemModel struct {
	grove.BaseModel `grove:"table:apothecary_cart_items"`

	CartID   string `grove:"cart_id,pk"`
	SKU      string `grove:"sku,pk"`
	Quantity int64  `grove:"quantity"`
	Position int64  `grove:"position"`
}

func toCartModel(c *cart.Cart) *cartModel {
	m := &cartModel{
		ID:            c.ID.String(),
		Customer:      c.Customer,
		TransactionID: optionalID(c.TransactionID),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.Payment != "" {
		m.Payment = &c.Payment
	}
	return m
}

func fromCartModel(m *cartModel, items []cartItemModel) (*cart.Cart, error) {
	cartID, err := id.ParseCartID(m.ID)
	if err != nil {
		return nil, err
	}
	txID, err := parseOptionalID(m.TransactionID)
	if err != nil {
		return nil, err
	}

	c := &cart.Cart{
		Entity:        types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:            cartID,
		Customer:      m.Customer,
		TransactionID: txID,
	}
	if m.Payment != nil {
		c.Payment = *m.Payment
	}
	for _, li := range items {
		c.Items = append(c.Items, cart.LineItem{SKU: li.SKU, Quantity: li.Quantity})
	}
	return c, nil
}

// ==================== Ledger models ====================

type transactionModel struct {
	grove.BaseModel `grove:"table:apothecary_transactions"`

	ID          string    `grove:"id,pk"`
	Kind        string    `grove:"kind"`
	Description string    `grove:"description"`
	ParentID    *string   `grove:"parent_id"`
	CartID      *string   `grove:"cart_id"`
	CreatedAt   time.Time `grove:"created_at"`
}

type goldEntryModel struct {
	grove.BaseModel `grove:"table:apothecary_gold_entries"`

	ID            string    `grove:"id,pk"`
	TransactionID string    `grove:"transaction_id"`
	Delta         int64     `grove:"delta"`
	CreatedAt     time.Time `grove:"created_at"`
}

type itemEntryModel struct {
	grove.BaseModel `grove:"table:apothecary_item_entries"`

	ID            string    `grove:"id,pk"`
	TransactionID string    `grove:"transaction_id"`
	SKU           string    `grove:"sku"`
	Delta         int64     `grove:"delta"`
	CreatedAt     time.Time `grove:"created_at"`
}

// stockLevelModel is one row of the per-sku stock aggregate.
type stockLevelModel struct {
	SKU   string `grove:"sku"`
	Total int64  `grove:"total"`
}

func toTransactionModel(tx *ledger.Transaction) *transactionModel {
	return &transactionModel{
		ID:          tx.ID.String(),
		Kind:        string(tx.Kind),
		Description: tx.Description,
		ParentID:    optionalID(tx.ParentID),
		CartID:      optionalID(tx.CartID),
		CreatedAt:   tx.CreatedAt,
	}
}

func fromTransactionModel(m *transactionModel) (*ledger.Transaction, error) {
	txID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}
	parentID, err := parseOptionalID(m.ParentID)
	if err != nil {
		return nil, err
	}
	cartID, err := parseOptionalID(m.CartID)
	if err != nil {
		return nil, err
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

// ==================== Search models ====================

type searchRowModel struct {
	EntryID       string    `grove:"entry_id"`
	TransactionID string    `grove:"transaction_id"`
	CartID        string    `grove:"cart_id"`
	SKU           string    `grove:"sku"`
	Customer      string    `grove:"customer"`
	Quantity      int64     `grove:"quantity"`
	Total         int64     `grove:"total"`
	Timestamp     time.Time `grove:"timestamp"`
}

func fromSearchRowModel(m *searchRowModel) (search.LineItem, error) {
	entryID, err := id.ParseEntryID(m.EntryID)
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
		Quantity:      m.Quantity,
		LineItemTotal: types.Gold(m.Total),
		Timestamp:     m.Timestamp,
	}, nil
}

// ==================== Helpers ====================

func optionalID(v id.ID) *string {
	if v.IsNil() {
		return nil
	}
	s := v.String()
	return &s
}

func parseOptionalID(s *string) (id.ID, error) {
	if s == nil || *s == "" {
		return id.Nil, nil
	}
	return id.Parse(*s)
}
