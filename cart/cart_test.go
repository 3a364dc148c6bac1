package cart_test

import (
	"strings"
	"testing"

	"github.com/xraph/apothecary/cart"
	"github.com/xraph/apothecary/id"
)

func TestSetQuantity(t *testing.T) {
	c := cart.New("Alice")

	c.SetQuantity("RED_POTION", 3)
	c.SetQuantity("BLUE_POTION", 1)
	c.SetQuantity("RED_POTION", 5)

	if len(c.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(c.Items))
	}
	if c.Items[0].SKU != "RED_POTION" || c.Items[0].Quantity != 5 {
		t.Errorf("overwrite should keep position: %+v", c.Items[0])
	}
	if c.TotalQuantity() != 6 {
		t.Errorf("total: got %d", c.TotalQuantity())
	}

	c.SetQuantity("RED_POTION", 0)
	if len(c.Items) != 1 || c.Items[0].SKU != "BLUE_POTION" {
		t.Errorf("zero should remove the line: %+v", c.Items)
	}
	if c.Quantity("RED_POTION") != 0 {
		t.Error("removed sku still has a quantity")
	}

	c.SetQuantity("GREEN_POTION", 0)
	if len(c.Items) != 1 {
		t.Error("zero for an absent sku must not add a line")
	}
}

func TestState(t *testing.T) {
	var nilCart *cart.Cart
	if nilCart.State() != cart.StateNotCreated {
		t.Errorf("nil cart: got %s", nilCart.State())
	}

	c := cart.New("Bob")
	if c.State() != cart.StateStaged {
		t.Errorf("new cart: got %s", c.State())
	}

	c.TransactionID = id.NewGlobalTransactionID()
	c.Payment = "gold coins"
	if c.State() != cart.StateSettled {
		t.Errorf("settled cart: got %s", c.State())
	}
}

func TestClone(t *testing.T) {
	c := cart.New("Alice")
	c.SetQuantity("RED_POTION", 1)
	cp := c.Clone()
	cp.SetQuantity("RED_POTION", 9)
	if c.Quantity("RED_POTION") != 1 {
		t.Error("clone shares line items with original")
	}
}

func TestRender(t *testing.T) {
	c := cart.New("Alice")
	lines := []cart.RenderLine{
		{SKU: "RED_POTION", Quantity: 3, PotionType: "[100, 0, 0, 0]", Price: 50, Stock: 7},
		{SKU: "BLUE_POTION", Quantity: 1, PotionType: "[0, 0, 100, 0]", Price: 40, Stock: 2},
	}

	want := "Cart #" + c.ID.String() + ": Alice is seeking to buy: " +
		"3 RED_POTION ([100, 0, 0, 0]) at 50 gold each for 150 gold (7 remaining), " +
		"1 BLUE_POTION ([0, 0, 100, 0]) at 40 gold each for 40 gold (2 remaining)."
	if got := cart.Render(c.ID.String(), c, lines); got != want {
		t.Errorf("staged:\n got %q\nwant %q", got, want)
	}

	c.Payment = "shiny rocks"
	c.TransactionID = id.NewGlobalTransactionID()
	got := cart.Render(c.ID.String(), c, lines[:1])
	if !strings.HasPrefix(got, "Cart #"+c.ID.String()+": Alice used shiny rocks to buy: 3 RED_POTION") {
		t.Errorf("settled: got %q", got)
	}

	if got := cart.Render("42", nil, nil); got != "Cart #42 has not yet been created." {
		t.Errorf("not created: got %q", got)
	}
}

func TestRenderEmptyCart(t *testing.T) {
	c := cart.New("Carol")
	want := "Cart #" + c.ID.String() + ": Carol is seeking to buy: nothing."
	if got := cart.Render(c.ID.String(), c, nil); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
