package tabular

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisRowCache is a RowCache backed by Redis, for deployments running more
// than one service instance: Invalidate takes effect across all of them
// instead of leaving peers to age out their private copies. TTL enforcement
// is delegated to Redis key expiry.
type RedisRowCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisRowCache creates a shared row cache. Keys are namespaced as
// "<prefix><table>:rows".
func NewRedisRowCache(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisRowCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisRowCache{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *RedisRowCache) key(table string) string {
	return c.prefix + table + ":rows"
}

func (c *RedisRowCache) Get(ctx context.Context, table string) ([]Row, bool) {
	val, err := c.client.Get(ctx, c.key(table)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("row cache read failed", zap.String("table", table), zap.Error(err))
		}
		return nil, false
	}
	var rows []Row
	if err := json.Unmarshal([]byte(val), &rows); err != nil {
		c.logger.Warn("row cache entry corrupt, dropping", zap.String("table", table), zap.Error(err))
		c.client.Del(ctx, c.key(table))
		return nil, false
	}
	return rows, true
}

func (c *RedisRowCache) Set(ctx context.Context, table string, rows []Row) {
	data, err := json.Marshal(rows)
	if err != nil {
		c.logger.Warn("row cache marshal failed", zap.String("table", table), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(table), data, c.ttl).Err(); err != nil {
		// A write miss only costs the next reader a backend round trip.
		c.logger.Warn("row cache write failed", zap.String("table", table), zap.Error(err))
	}
}

func (c *RedisRowCache) Invalidate(ctx context.Context, table string) {
	if err := c.client.Del(ctx, c.key(table)).Err(); err != nil {
		c.logger.Warn("row cache invalidation failed", zap.String("table", table), zap.Error(err))
	}
}
