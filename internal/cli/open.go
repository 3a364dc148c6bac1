package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/apothecary"
	audithook "github.com/xraph/apothecary/audit_hook"
	rediscache "github.com/xraph/apothecary/cache/redis"
	"github.com/xraph/apothecary/observability"
	"github.com/xraph/apothecary/store"
	"github.com/xraph/apothecary/store/memory"
	"github.com/xraph/apothecary/store/mongo"
	"github.com/xraph/apothecary/store/postgres"
	"github.com/xraph/apothecary/store/sqlite"
)

// OpenStore opens the backend named by cfg.Driver.
func OpenStore(ctx context.Context, cfg StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "postgres":
		return postgres.Open(ctx, cfg.DSN)
	case "sqlite":
		return sqlite.Open(cfg.DSN)
	case "mongo":
		return mongo.Open(ctx, cfg.DSN, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// shopDeps are the resources a shop built from Config holds besides its store.
type shopDeps struct {
	redis    *goredis.Client
	registry *prometheus.Registry
}

func (d *shopDeps) close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
}

// buildShop wires the engine options described by cfg around s.
func buildShop(cfg Config, s store.Store, logger *slog.Logger) (*apothecary.Shop, *shopDeps) {
	deps := &shopDeps{}
	opts := []apothecary.Option{
		apothecary.WithLogger(logger),
		apothecary.WithPluginTimeout(cfg.PluginTimeout),
	}

	if cfg.Redis.Addr != "" {
		deps.redis = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts = append(opts, apothecary.WithCatalogCache(
			rediscache.New(deps.redis, rediscache.WithTTL(cfg.Redis.TTL)),
		))
	}

	if cfg.Metrics {
		deps.registry = prometheus.NewRegistry()
		deps.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		factory := observability.NewPrometheusFactory(deps.registry)
		opts = append(opts, apothecary.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	if cfg.Audit {
		recorder := audithook.LogRecorder(logger.With("component", "audit"))
		opts = append(opts, apothecary.WithPlugin(audithook.New(recorder, audithook.WithLogger(logger))))
	}

	return apothecary.New(s, opts...), deps
}
