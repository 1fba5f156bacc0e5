package tabular

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedisCache(t *testing.T) (*RedisRowCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRowCache(client, "materna:", time.Minute, zap.NewNop()), mr
}

func TestRedisRowCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestRedisCache(t)

	_, ok := cache.Get(ctx, "cases")
	assert.False(t, ok)

	cache.Set(ctx, "cases", []Row{{"id": "C-1", "territory": "norte"}})

	rows, ok := cache.Get(ctx, "cases")
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "C-1", rows[0]["id"])
}

func TestRedisRowCacheExpiry(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestRedisCache(t)

	cache.Set(ctx, "cases", []Row{{"id": "C-1"}})
	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, "cases")
	assert.False(t, ok)
}

func TestRedisRowCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestRedisCache(t)

	cache.Set(ctx, "cases", []Row{{"id": "C-1"}})
	cache.Invalidate(ctx, "cases")

	_, ok := cache.Get(ctx, "cases")
	assert.False(t, ok)
}

func TestRedisRowCacheCorruptEntryDropped(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestRedisCache(t)

	require.NoError(t, mr.Set("materna:cases:rows", "not json"))

	_, ok := cache.Get(ctx, "cases")
	assert.False(t, ok)
	// The bad entry is deleted so it cannot shadow later snapshots.
	assert.False(t, mr.Exists("materna:cases:rows"))
}
