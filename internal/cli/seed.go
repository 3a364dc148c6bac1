package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/ledger"
	"github.com/xraph/apothecary/types"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Step  int
	Price int64
	Stock int64
	Gold  int64
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the potion catalog",
		Long: `Create one item per potion type whose components are multiples of
--step and sum to 100, priced at --price on every day. With --stock or
--gold the opening balances are recorded as one adjustment.

Example:
  apothecary seed --driver sqlite --dsn ./shop.db --step 50 --stock 10 --gold 100`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Step, "step", 50, "potion component step (must divide 100)")
	cmd.Flags().Int64Var(&opts.Price, "price", int64(item.DefaultPrice), "price of every item on every day")
	cmd.Flags().Int64Var(&opts.Stock, "stock", 0, "opening stock per item")
	cmd.Flags().Int64Var(&opts.Gold, "gold", 0, "opening gold")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *SeedOptions) error {
	ctx := cmd.Context()
	cfg := opts.Config

	logger, err := NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	items, err := item.Bootstrap(opts.Step, item.FlatPrice(types.Gold(opts.Price)))
	if err != nil {
		return err
	}

	s, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	shop, deps := buildShop(cfg, s, logger)
	defer deps.close()
	if err := shop.Start(ctx); err != nil {
		_ = s.Close()
		return err
	}
	defer shop.Stop() //nolint:errcheck // best-effort close after seeding

	for _, it := range items {
		if err := shop.UpsertItem(ctx, it); err != nil {
			return err
		}
	}

	if opts.Stock != 0 || opts.Gold != 0 {
		adj := ledger.Adjustment{Description: "opening balance", Gold: types.Gold(opts.Gold)}
		if opts.Stock != 0 {
			adj.Items = make(map[string]int64, len(items))
			for _, it := range items {
				adj.Items[it.SKU] = opts.Stock
			}
		}
		if _, err := shop.Adjust(ctx, adj); err != nil {
			return err
		}
	}

	logger.Info("catalog seeded", "items", len(items), "stock", opts.Stock, "gold", opts.Gold)
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d items\n", len(items))
	return nil
}
