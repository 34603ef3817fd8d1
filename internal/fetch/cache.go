package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sells-group/review-cli/internal/metrics"
)

const cacheKeyPrefix = "reviews:page:"

// NewRedisClient connects to the page cache.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// CachedFetcher serves pages from Redis and fills the cache from the wrapped
// fetcher on a miss. Cache failures are logged and bypassed.
type CachedFetcher struct {
	next Fetcher
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedFetcher wraps next with a Redis page cache.
func NewCachedFetcher(next Fetcher, rdb *redis.Client, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{next: next, rdb: rdb, ttl: ttl}
}

// Name implements Fetcher.
func (c *CachedFetcher) Name() string { return "cached_" + c.next.Name() }

// Fetch implements Fetcher.
func (c *CachedFetcher) Fetch(ctx context.Context, url string) (string, error) {
	key := CacheKey(url)

	html, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		metrics.ObserveCache("redis", "hit")
		zap.L().Debug("fetch: page cache hit", zap.String("url", url))
		return html, nil
	case errors.Is(err, redis.Nil):
		metrics.ObserveCache("redis", "miss")
	default:
		metrics.ObserveCache("redis", "error")
		zap.L().Warn("fetch: page cache read failed", zap.String("url", url), zap.Error(err))
	}

	html, err = c.next.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	if err := c.rdb.Set(ctx, key, html, c.ttl).Err(); err != nil {
		zap.L().Warn("fetch: page cache write failed", zap.String("url", url), zap.Error(err))
	} else {
		metrics.ObserveCache("redis", "set")
	}
	return html, nil
}

// CacheKey returns the Redis key for url.
func CacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return cacheKeyPrefix + hex.EncodeToString(sum[:16])
}
