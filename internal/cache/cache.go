// Package cache holds the short-code -> long-URL lookup cache used on the
// redirect hot path. It is advisory: a miss only means the durable store must
// be read, and every entry expires on its own.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"urlshortener/pkg/logger"
)

const keyPrefix = "short:"

// DefaultTTL bounds staleness for cached long URLs.
const DefaultTTL = 24 * time.Hour

type Cache struct {
	rdb *redis.Client // may be nil if Redis is disabled
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// GetLongURL returns the cached long URL for code. Any Redis error is treated
// as a miss so a cache outage degrades to durable reads instead of failing
// redirects.
func (c *Cache) GetLongURL(ctx context.Context, code string) (string, bool) {
	if c.rdb == nil {
		return "", false
	}
	val, err := c.rdb.Get(ctx, keyPrefix+code).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warn().Err(err).Str("code", code).Msg("cache get failed")
		}
		return "", false
	}
	return val, true
}

// SetLongURL populates the cache after a durable read. Best-effort: failures
// are logged and the redirect proceeds.
func (c *Cache) SetLongURL(ctx context.Context, code, longURL string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+code, longURL, c.ttl).Err(); err != nil {
		logger.Warn().Err(err).Str("code", code).Msg("cache set failed")
	}
}
