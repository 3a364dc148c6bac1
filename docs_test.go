package apothecary_test

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"testing"

	"github.com/xraph/apothecary"
	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/ledger"
	"github.com/xraph/apothecary/store/memory"
	"github.com/xraph/apothecary/types"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and behave as described.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()

		shop := apothecary.New(memory.New(),
			apothecary.WithLogger(slog.Default()),
			apothecary.WithClock(apothecary.FixedClock(types.Wednesday)),
		)
		if err := shop.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer shop.Stop()

		// Seed the catalog at 50 gold per potion, then stock it.
		items, err := item.Bootstrap(100, nil)
		if err != nil {
			t.Fatal(err)
		}
		for _, it := range items {
			if err := shop.UpsertItem(ctx, it); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := shop.Adjust(ctx, ledger.Adjustment{
			Description: "opening stock",
			Items:       map[string]int64{"POTION_100_0_0_0": 5},
		}); err != nil {
			t.Fatal(err)
		}

		c, err := shop.CreateCart(ctx, "Alice")
		if err != nil {
			t.Fatal(err)
		}
		if err := shop.SetLineItem(ctx, c.ID, "POTION_100_0_0_0", 3); err != nil {
			t.Fatal(err)
		}

		receipt, err := shop.Checkout(ctx, c.ID, "gold coins")
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("sold %d potions for %s\n", receipt.TotalPotionsBought, receipt.TotalGoldPaid)

		if receipt.TotalGoldPaid != 150 {
			t.Errorf("expected 150 gold, got %v", receipt.TotalGoldPaid)
		}
	})

	t.Run("ErrorsExample", func(t *testing.T) {
		ctx := context.Background()
		shop := apothecary.New(memory.New())

		_, err := shop.Checkout(ctx, apothecary.ID{}, "gold coins")
		if !errors.Is(err, apothecary.ErrCartNotFound) {
			t.Errorf("expected cart not found, got %v", err)
		}
		if !apothecary.IsNotFound(err) {
			t.Error("IsNotFound should report a missing cart")
		}
	})
}
