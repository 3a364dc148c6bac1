// Package redis caches the shop catalog in Redis, one key per day of the
// week. Entries expire after a TTL and are dropped on every stock change.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/apothecary/inventory"
	"github.com/xraph/apothecary/types"
)

// DefaultTTL bounds how long a cached catalog is served.
const DefaultTTL = time.Minute

// DefaultPrefix namespaces the cache keys.
const DefaultPrefix = "apothecary:catalog"

var _ inventory.Cache = (*Cache)(nil)

// Cache implements inventory.Cache on a Redis client.
type Cache struct {
	client goredis.UniversalClient
	ttl    time.Duration
	prefix string
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the entry lifetime. Non-positive values keep DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// New returns a catalog cache on client.
func New(client goredis.UniversalClient, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		ttl:    DefaultTTL,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached catalog for day. A miss is (nil, false, nil).
func (c *Cache) Get(ctx context.Context, day types.DayOfWeek) ([]inventory.CatalogEntry, bool, error) {
	data, err := c.client.Get(ctx, c.key(day)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("apothecary/redis: get: %w", err)
	}

	var entries []inventory.CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("apothecary/redis: unmarshal catalog: %w", err)
	}
	return entries, true, nil
}

// Set stores the catalog for day.
func (c *Cache) Set(ctx context.Context, day types.DayOfWeek, entries []inventory.CatalogEntry) error {
	if entries == nil {
		entries = []inventory.CatalogEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("apothecary/redis: marshal catalog: %w", err)
	}
	if err := c.client.Set(ctx, c.key(day), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("apothecary/redis: set: %w", err)
	}
	return nil
}

// Invalidate drops the cached catalog for every day.
func (c *Cache) Invalidate(ctx context.Context) error {
	keys := make([]string, 0, len(types.Days))
	for _, day := range types.Days {
		keys = append(keys, c.key(day))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("apothecary/redis: invalidate: %w", err)
	}
	return nil
}

func (c *Cache) key(day types.DayOfWeek) string {
	return fmt.Sprintf("%s:%s", c.prefix, day)
}
