package stock

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"hemobank/internal/platform/redis"
)

const reportCacheKey = "hemobank:stock:report"

// Cache keeps the aggregate stock report in Redis for a short TTL. The report
// is read far more often than stock changes, and staleness is bounded both by
// the TTL and by explicit invalidation on every mutation. A nil *Cache is a
// valid always-miss cache, so callers never branch on whether Redis is
// configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// GetReport returns the cached report and whether it was present. Cache
// errors degrade to a miss.
func (c *Cache) GetReport(ctx context.Context) ([]GroupTotal, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, reportCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.WarnContext(ctx, "stock report cache read failed", "error", err)
		}
		return nil, false
	}
	var report []GroupTotal
	if err := json.Unmarshal(raw, &report); err != nil {
		c.logger.WarnContext(ctx, "stock report cache entry corrupt, dropping", "error", err)
		c.Invalidate(ctx)
		return nil, false
	}
	return report, true
}

func (c *Cache) SetReport(ctx context.Context, report []GroupTotal) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, reportCacheKey, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "stock report cache write failed", "error", err)
	}
}

// Invalidate drops the cached report; every stock mutation calls it.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, reportCacheKey).Err(); err != nil {
		c.logger.WarnContext(ctx, "stock report cache invalidation failed", "error", err)
	}
}
