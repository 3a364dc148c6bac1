package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "migrate",
		Short:         "Apply store migrations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := rootOpts.Config
			logger, err := NewLogger(cfg.Log, os.Stderr)
			if err != nil {
				return err
			}

			s, err := OpenStore(cmd.Context(), cfg.Store)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			if err := s.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations applied", "driver", cfg.Store.Driver)
			return nil
		},
	}
}
