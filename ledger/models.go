// Package ledger defines the append-only records that every gold and stock
// movement is written as. Nothing here is ever updated or deleted; a
// correction is a new transaction with compensating entries.
package ledger

import (
	"fmt"
	"time"

	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/types"
)

// Kind separates gold-bearing transactions from inventory ones.
type Kind string

const (
	KindGlobal Kind = "global"
	KindItem   Kind = "item"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindGlobal || k == KindItem
}

// Transaction groups entries written together.
type Transaction struct {
	ID          id.TransactionID `json:"id"`
	Kind        Kind             `json:"kind"`
	Description string           `json:"description"`
	// ParentID links an item transaction to the global transaction of the
	// same checkout or adjustment.
	ParentID  id.TransactionID `json:"parent_id,omitempty"`
	CartID    id.CartID        `json:"cart_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewTransaction mints a transaction of kind with a fresh id and timestamp.
func NewTransaction(kind Kind, description string) (*Transaction, error) {
	var tid id.TransactionID
	switch kind {
	case KindGlobal:
		tid = id.NewGlobalTransactionID()
	case KindItem:
		tid = id.NewItemTransactionID()
	default:
		return nil, fmt.Errorf("ledger: unknown transaction kind %q", kind)
	}
	return &Transaction{
		ID:          tid,
		Kind:        kind,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// GoldEntry is a signed gold delta under a global transaction.
type GoldEntry struct {
	ID            id.EntryID       `json:"id"`
	TransactionID id.TransactionID `json:"transaction_id"`
	Delta         types.Gold       `json:"delta"`
	CreatedAt     time.Time        `json:"created_at"`
}

// NewGoldEntry returns an entry of delta with a fresh id. Appending it to a
// transaction sets TransactionID.
func NewGoldEntry(delta types.Gold) GoldEntry {
	return GoldEntry{ID: id.NewGoldEntryID(), Delta: delta, CreatedAt: time.Now().UTC()}
}

// ItemEntry is a signed stock delta for one SKU under an item transaction.
type ItemEntry struct {
	ID            id.EntryID       `json:"id"`
	TransactionID id.TransactionID `json:"transaction_id"`
	SKU           string           `json:"sku"`
	Delta         int64            `json:"delta"`
	CreatedAt     time.Time        `json:"created_at"`
}

// NewItemEntry returns an entry of delta for sku with a fresh id.
func NewItemEntry(sku string, delta int64) ItemEntry {
	return ItemEntry{ID: id.NewItemEntryID(), SKU: sku, Delta: delta, CreatedAt: time.Now().UTC()}
}

// Adjustment is a compensating write outside checkout: stock seeding,
// write-offs, gold corrections. It becomes one global transaction carrying
// Gold and one item transaction carrying Items.
type Adjustment struct {
	Description string           `json:"description"`
	Gold        types.Gold       `json:"gold"`
	Items       map[string]int64 `json:"items,omitempty"`
}

// AdjustmentResult identifies what an adjustment wrote.
type AdjustmentResult struct {
	GlobalTransactionID id.TransactionID `json:"global_transaction_id"`
	ItemTransactionID   id.TransactionID `json:"item_transaction_id,omitempty"`
}

// Receipt summarizes a committed checkout.
type Receipt struct {
	CartID             id.CartID        `json:"cart_id"`
	TransactionID      id.TransactionID `json:"transaction_id"`
	TotalPotionsBought int64            `json:"total_potions_bought"`
	TotalGoldPaid      types.Gold       `json:"total_gold_paid"`
	Day                types.DayOfWeek  `json:"day"`
}
