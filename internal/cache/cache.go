// Package cache is a redis read-through cache for object-storage listings,
// keeping repeated browse requests off the bucket API. All cache failures
// are tolerated: a broken redis only costs extra listing calls.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "cos:list:"

	// DefaultTTL keeps listings fresh enough for a browsing UI.
	DefaultTTL = 5 * time.Minute
)

// Config holds the redis connection settings.
type Config struct {
	Addr string
	DB   int
	TTL  time.Duration
}

// ListingCache caches JSON-encoded listing pages keyed by prefix.
type ListingCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// New creates a cache over a redis connection. The connection is lazy; a
// missing redis surfaces as cache misses.
func New(cfg Config, logger *log.Logger) *ListingCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &ListingCache{
		rdb:    redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB}),
		ttl:    cfg.TTL,
		logger: logger,
	}
}

// Get unmarshals the cached listing for prefix into dest. Returns false on
// miss or any error.
func (c *ListingCache) Get(ctx context.Context, prefix string, dest any) bool {
	data, err := c.rdb.Get(ctx, keyPrefix+prefix).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Printf("cache: read failed: %v", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		c.logger.Printf("cache: corrupt entry for %q: %v", prefix, err)
		return false
	}
	return true
}

// Set stores the listing for prefix with the configured TTL.
func (c *ListingCache) Set(ctx context.Context, prefix string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Printf("cache: encode failed: %v", err)
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+prefix, data, c.ttl).Err(); err != nil {
		c.logger.Printf("cache: write failed: %v", err)
	}
}

// Invalidate drops the cached listing for prefix, every parent prefix, and
// the root, so a mutation is visible at all browse levels.
func (c *ListingCache) Invalidate(ctx context.Context, prefix string) {
	keys := invalidationKeys(prefix)
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Printf("cache: invalidate failed: %v", err)
		return
	}
	c.logger.Printf("cache: invalidated %d keys for %q", len(keys), prefix)
}

// InvalidateAll drops every cached listing.
func (c *ListingCache) InvalidateAll(ctx context.Context) {
	keys, err := c.rdb.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		c.logger.Printf("cache: key scan failed: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Printf("cache: invalidate all failed: %v", err)
	}
}

// invalidationKeys expands a prefix into the set of cache keys affected by a
// mutation under it.
func invalidationKeys(prefix string) []string {
	seen := map[string]struct{}{
		keyPrefix + prefix: {},
		keyPrefix:          {}, // root listing
	}

	parts := strings.Split(strings.TrimSuffix(prefix, "/"), "/")
	for i := 1; i < len(parts); i++ {
		parent := strings.Join(parts[:i], "/") + "/"
		seen[keyPrefix+parent] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	return keys
}
