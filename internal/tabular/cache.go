package tabular

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Clock is injected into cache implementations so TTL behavior is testable
// without wall-clock sampling inside the component.
type Clock func() time.Time

// RowCache stores full table snapshots keyed by table name. Implementations
// must only serve entries younger than their TTL and must drop an entry on
// Invalidate.
type RowCache interface {
	Get(ctx context.Context, table string) ([]Row, bool)
	Set(ctx context.Context, table string, rows []Row)
	Invalidate(ctx context.Context, table string)
}

// DefaultCacheTTL bounds how stale a table snapshot may get.
const DefaultCacheTTL = 30 * time.Second

type memoryCacheEntry struct {
	fetchedAt time.Time
	rows      []Row
}

// MemoryRowCache is the in-process RowCache. Shared across all readers of a
// process; cross-instance staleness is bounded by one TTL window.
type MemoryRowCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     Clock
	entries map[string]memoryCacheEntry
}

// NewMemoryRowCache creates a TTL cache. A nil clock defaults to time.Now.
func NewMemoryRowCache(ttl time.Duration, now Clock) *MemoryRowCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryRowCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]memoryCacheEntry),
	}
}

func (c *MemoryRowCache) Get(_ context.Context, table string) ([]Row, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[table]
	if !ok || c.now().Sub(entry.fetchedAt) >= c.ttl {
		return nil, false
	}
	return entry.rows, true
}

func (c *MemoryRowCache) Set(_ context.Context, table string, rows []Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[table] = memoryCacheEntry{fetchedAt: c.now(), rows: rows}
}

func (c *MemoryRowCache) Invalidate(_ context.Context, table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, table)
}

// CachedTable wraps a Table with a read-through RowCache. Every write
// invalidates the table's entry before and after touching the backend, so a
// failed write can never leave a stale snapshot behind; a cache entry is
// only installed after a fully successful read.
//
// Each invalidation bumps a per-table generation. A read records the
// generation before hitting the backend and only installs its snapshot if
// no write invalidated the table in the meantime — otherwise an in-flight
// read could resurrect a pre-write snapshot right after the write's
// invalidation, and the next read would not be fresh.
//
// FindRowKey deliberately bypasses the cache: row positions feed
// UpdateRow and must reflect the backend's current layout.
type CachedTable struct {
	inner  Table
	cache  RowCache
	logger *zap.Logger

	mu   sync.Mutex
	gens map[string]uint64 // invalidation generation per table
}

// NewCachedTable wraps inner with cache.
func NewCachedTable(inner Table, cache RowCache, logger *zap.Logger) *CachedTable {
	return &CachedTable{
		inner:  inner,
		cache:  cache,
		logger: logger,
		gens:   make(map[string]uint64),
	}
}

func (t *CachedTable) generation(table string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gens[table]
}

func (t *CachedTable) invalidate(ctx context.Context, table string) {
	t.mu.Lock()
	t.gens[table]++
	t.mu.Unlock()
	t.cache.Invalidate(ctx, table)
}

func (t *CachedTable) ReadAll(ctx context.Context, table string) ([]Row, error) {
	if rows, ok := t.cache.Get(ctx, table); ok {
		return rows, nil
	}
	gen := t.generation(table)
	rows, err := t.inner.ReadAll(ctx, table)
	if err != nil {
		return nil, err
	}
	// Holding the lock across Set keeps invalidate from slipping between
	// the generation check and the install.
	t.mu.Lock()
	if t.gens[table] == gen {
		t.cache.Set(ctx, table, rows)
	}
	t.mu.Unlock()
	return rows, nil
}

func (t *CachedTable) Append(ctx context.Context, table string, row Row) error {
	t.invalidate(ctx, table)
	err := t.inner.Append(ctx, table, row)
	t.invalidate(ctx, table)
	if err == nil {
		t.logger.Debug("table cache invalidated after append", zap.String("table", table))
	}
	return err
}

func (t *CachedTable) FindRowKey(ctx context.Context, table, keyColumn, keyValue string) (int, error) {
	return t.inner.FindRowKey(ctx, table, keyColumn, keyValue)
}

func (t *CachedTable) UpdateRow(ctx context.Context, table string, rowIndex int, row Row) error {
	t.invalidate(ctx, table)
	err := t.inner.UpdateRow(ctx, table, rowIndex, row)
	t.invalidate(ctx, table)
	if err == nil {
		t.logger.Debug("table cache invalidated after update",
			zap.String("table", table),
			zap.Int("row", rowIndex),
		)
	}
	return err
}

// Invalidate drops the cached snapshot for a table (out-of-band writes).
func (t *CachedTable) Invalidate(ctx context.Context, table string) {
	t.invalidate(ctx, table)
}
