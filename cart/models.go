// Package cart defines the customer cart aggregate and its textual summary.
package cart

import (
	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/types"
)

// State is the lifecycle position of a cart.
type State string

const (
	// StateNotCreated describes an id that no stored cart carries.
	StateNotCreated State = "NOT_CREATED"
	// StateStaged is an open cart that can still be changed.
	StateStaged State = "STAGED"
	// StateSettled is a checked-out cart. It is frozen.
	StateSettled State = "SETTLED"
)

// LineItem is one SKU and the quantity requested. Quantity is always
// positive in a stored cart.
type LineItem struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity"`
}

// Cart is an ordered, SKU-unique list of line items owned by a customer.
type Cart struct {
	types.Entity
	ID            id.CartID        `json:"id"`
	Customer      string           `json:"customer"`
	Items         []LineItem       `json:"items"`
	Payment       string           `json:"payment,omitempty"`
	TransactionID id.TransactionID `json:"transaction_id,omitempty"`
}

// New returns an empty staged cart for customer.
func New(customer string) *Cart {
	return &Cart{
		Entity:   types.NewEntity(),
		ID:       id.NewCartID(),
		Customer: customer,
	}
}

// State reports STAGED or SETTLED. A nil cart is NOT_CREATED.
func (c *Cart) State() State {
	switch {
	case c == nil:
		return StateNotCreated
	case c.Settled():
		return StateSettled
	default:
		return StateStaged
	}
}

// Settled reports whether a checkout has frozen the cart.
func (c *Cart) Settled() bool {
	return !c.TransactionID.IsNil()
}

// Quantity returns the requested quantity of sku, or 0.
func (c *Cart) Quantity(sku string) int64 {
	for _, li := range c.Items {
		if li.SKU == sku {
			return li.Quantity
		}
	}
	return 0
}

// TotalQuantity sums every line's quantity.
func (c *Cart) TotalQuantity() int64 {
	var n int64
	for _, li := range c.Items {
		n += li.Quantity
	}
	return n
}

// SetQuantity applies the upsert rule: zero removes the line, anything
// else overwrites it in place or appends it. Callers reject negatives.
func (c *Cart) SetQuantity(sku string, qty int64) {
	for i, li := range c.Items {
		if li.SKU != sku {
			continue
		}
		if qty == 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity = qty
		}
		return
	}
	if qty != 0 {
		c.Items = append(c.Items, LineItem{SKU: sku, Quantity: qty})
	}
}

// Clone returns a copy that does not share the line slice.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = append([]LineItem(nil), c.Items...)
	return &cp
}
