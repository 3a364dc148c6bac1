package cart

import (
	"fmt"
	"strings"

	"github.com/xraph/apothecary/types"
)

// RenderLine is a line item enriched with the catalog values shown in a
// summary: the potion composition, today's price and current stock.
type RenderLine struct {
	SKU        string
	Quantity   int64
	PotionType string
	Price      types.Gold
	Stock      int64
}

// Total is the line's cost.
func (l RenderLine) Total() types.Gold {
	return l.Price.Times(l.Quantity)
}

func (l RenderLine) String() string {
	return fmt.Sprintf("%d %s (%s) at %d gold each for %d gold (%d remaining)",
		l.Quantity, l.SKU, l.PotionType, l.Price, l.Total(), l.Stock)
}

// RenderLines joins lines with ", ". No lines renders "nothing".
func RenderLines(lines []RenderLine) string {
	if len(lines) == 0 {
		return "nothing"
	}
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.String()
	}
	return strings.Join(parts, ", ")
}

// RenderNotCreated is the summary for an id with no stored cart.
func RenderNotCreated(cartID string) string {
	return fmt.Sprintf("Cart #%s has not yet been created.", cartID)
}

// RenderStaged is the summary of an open cart. Checkout also uses it as
// the description of every ledger transaction it writes.
func RenderStaged(c *Cart, lines []RenderLine) string {
	return fmt.Sprintf("Cart #%s: %s is seeking to buy: %s.", c.ID, c.Customer, RenderLines(lines))
}

// RenderSettled is the summary of a checked-out cart.
func RenderSettled(c *Cart, lines []RenderLine) string {
	return fmt.Sprintf("Cart #%s: %s used %s to buy: %s.", c.ID, c.Customer, c.Payment, RenderLines(lines))
}

// Render picks the summary format matching the cart's state. A nil cart
// renders NOT_CREATED for cartID.
func Render(cartID string, c *Cart, lines []RenderLine) string {
	switch c.State() {
	case StateSettled:
		return RenderSettled(c, lines)
	case StateStaged:
		return RenderStaged(c, lines)
	default:
		return RenderNotCreated(cartID)
	}
}
