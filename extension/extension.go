// Package extension provides the Forge extension adapter for Apothecary.
//
// It implements the forge.Extension interface to integrate the shop
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.apothecary" or
// "apothecary" keys.
package extension

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/apothecary"
	rediscache "github.com/xraph/apothecary/cache/redis"
	"github.com/xraph/apothecary/observability"
	"github.com/xraph/apothecary/store"
	"github.com/xraph/apothecary/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "apothecary"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Ledger-backed potion shop"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Apothecary as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config   Config
	shop     *apothecary.Shop
	store    store.Store
	redis    goredis.UniversalClient
	metrics  prometheus.Registerer
	shopOpts []apothecary.Option
}

// New creates a new Apothecary Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Shop returns the underlying shop engine.
// This is nil until Register is called.
func (e *Extension) Shop() *apothecary.Shop { return e.shop }

// Register implements [forge.Extension]. It loads configuration,
// initializes the shop engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	e.shop = apothecary.New(e.store, e.buildShopOpts()...)

	return vessel.Provide(fapp.Container(), func() (*apothecary.Shop, error) {
		return e.shop, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.shop == nil {
		return errors.New("apothecary: extension not initialized")
	}

	if e.config.DisableMigrate {
		e.shop.Plugins().EmitInit(ctx, e.shop)
	} else if err := e.shop.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.shop != nil {
		if err := e.shop.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("apothecary: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildShopOpts constructs apothecary.Option values from the resolved config.
func (e *Extension) buildShopOpts() []apothecary.Option {
	opts := make([]apothecary.Option, 0, len(e.shopOpts)+4)

	opts = append(opts, apothecary.WithPluginTimeout(e.config.PluginTimeout))

	if e.redis != nil {
		opts = append(opts, apothecary.WithCatalogCache(
			rediscache.New(e.redis, rediscache.WithTTL(e.config.CatalogCacheTTL)),
		))
	}

	if e.metrics != nil {
		factory := observability.NewPrometheusFactory(e.metrics)
		opts = append(opts, apothecary.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	// Append any pass-through shop options.
	opts = append(opts, e.shopOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("apothecary: configuration is required but not found in config files; " +
				"ensure 'extensions.apothecary' or 'apothecary' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("apothecary: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("catalog_cache_ttl", e.config.CatalogCacheTTL),
		forge.F("plugin_timeout", e.config.PluginTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions." + ExtensionName, ExtensionName} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("apothecary: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("apothecary: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}
