// Package cli implements the apothecary command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Driver     string
	DSN        string
	Verbose    bool

	// Config is resolved before any subcommand runs.
	Config Config
}

// ValidFormats defines the allowed log formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the apothecary CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "apothecary",
		Short: "Ledger-backed potion shop",
		Long:  "Run, migrate and seed a potion shop whose stock and gold are derived from an append-only ledger.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			if opts.Driver != "" {
				cfg.Store.Driver = opts.Driver
			}
			if opts.DSN != "" {
				cfg.Store.DSN = opts.DSN
			}
			if opts.Verbose {
				cfg.Log.Level = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			opts.Config = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "store driver (memory|postgres|sqlite|mongo)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "store DSN, file path or URI")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

// NewLogger builds the slog logger described by cfg.
func NewLogger(cfg LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
