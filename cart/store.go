package cart

import (
	"context"

	"github.com/xraph/apothecary/id"
)

// Store persists carts.
type Store interface {
	CreateCart(ctx context.Context, c *Cart) error
	GetCart(ctx context.Context, cartID id.CartID) (*Cart, error)
	UpsertLineItem(ctx context.Context, cartID id.CartID, li LineItem) error
	DeleteLineItem(ctx context.Context, cartID id.CartID, sku string) error

	// SettleCart records payment and the settling transaction. It must
	// fail with ErrCartAlreadySettled when the cart already carries a
	// transaction, so two checkouts cannot both succeed.
	SettleCart(ctx context.Context, cartID id.CartID, payment string, txID id.TransactionID) error
}
