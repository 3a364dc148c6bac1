package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/xraph/apothecary/api"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the shop HTTP API",
		Long: `Migrate the store and serve the shop HTTP API until interrupted.

Example:
  apothecary serve --driver sqlite --dsn ./shop.db --addr :8080
  APOTHECARY_API_KEY=secret apothecary serve -c apothecary.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides http.addr)")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg := opts.Config
	if opts.Addr != "" {
		cfg.HTTP.Addr = opts.Addr
	}

	logger, err := NewLogger(cfg.Log, os.Stderr)
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
	defer func() {
		if err := shop.Stop(); err != nil {
			logger.Warn("shop stop failed", "error", err)
		}
	}()

	apiOpts := []api.Option{
		api.WithLogger(logger),
		api.WithAPIKey(cfg.HTTP.APIKey),
		api.WithTimeout(cfg.HTTP.Timeout),
	}
	if deps.registry != nil {
		apiOpts = append(apiOpts, api.WithMetricsHandler(promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{})))
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.New(shop, apiOpts...).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr, "driver", cfg.Store.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
