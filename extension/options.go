package extension

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/apothecary"
	"github.com/xraph/apothecary/plugin"
	"github.com/xraph/apothecary/store"
)

// Option configures the Apothecary Forge extension.
type Option func(*Extension)

// WithStore sets the store for the shop engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithShopOption passes an apothecary.Option through to the underlying engine.
func WithShopOption(opt apothecary.Option) Option {
	return func(e *Extension) {
		e.shopOpts = append(e.shopOpts, opt)
	}
}

// WithPlugin registers a shop plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.shopOpts = append(e.shopOpts, apothecary.WithPlugin(p))
	}
}

// WithRedis caches the catalog in Redis for Config.CatalogCacheTTL.
func WithRedis(client goredis.UniversalClient) Option {
	return func(e *Extension) { e.redis = client }
}

// WithMetrics registers the metrics plugin with collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Extension) { e.metrics = reg }
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithCatalogCacheTTL sets how long a cached catalog is served.
func WithCatalogCacheTTL(d time.Duration) Option {
	return func(e *Extension) { e.config.CatalogCacheTTL = d }
}

// WithPluginTimeout bounds a single plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}
