package tabular

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClock advances only when told to.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// countingTable counts backend reads so tests can tell hits from misses.
type countingTable struct {
	*MemoryTable
	reads   int
	readErr error
}

func (c *countingTable) ReadAll(ctx context.Context, table string) ([]Row, error) {
	c.reads++
	if c.readErr != nil {
		return nil, c.readErr
	}
	return c.MemoryTable.ReadAll(ctx, table)
}

func TestMemoryRowCacheTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cache := NewMemoryRowCache(30*time.Second, clock.Now)

	cache.Set(ctx, "cases", []Row{{"id": "C-1"}})

	rows, ok := cache.Get(ctx, "cases")
	require.True(t, ok)
	assert.Len(t, rows, 1)

	// Still inside the window.
	clock.Advance(29 * time.Second)
	_, ok = cache.Get(ctx, "cases")
	assert.True(t, ok)

	// At exactly the TTL the entry is stale.
	clock.Advance(1 * time.Second)
	_, ok = cache.Get(ctx, "cases")
	assert.False(t, ok)
}

func TestMemoryRowCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryRowCache(time.Minute, nil)

	cache.Set(ctx, "cases", []Row{{"id": "C-1"}})
	cache.Invalidate(ctx, "cases")

	_, ok := cache.Get(ctx, "cases")
	assert.False(t, ok)
}

func TestCachedTableReadThrough(t *testing.T) {
	ctx := context.Background()
	inner := &countingTable{MemoryTable: NewMemoryTable(testSchema())}
	require.NoError(t, inner.MemoryTable.Append(ctx, "cases", Row{"id": "C-1"}))

	cached := NewCachedTable(inner, NewMemoryRowCache(time.Minute, nil), zap.NewNop())

	rows, err := cached.ReadAll(ctx, "cases")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, inner.reads)

	// Second read is served from the snapshot.
	_, err = cached.ReadAll(ctx, "cases")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.reads)
}

func TestCachedTableWriteInvalidates(t *testing.T) {
	ctx := context.Background()
	inner := &countingTable{MemoryTable: NewMemoryTable(testSchema())}
	cached := NewCachedTable(inner, NewMemoryRowCache(time.Minute, nil), zap.NewNop())

	require.NoError(t, cached.Append(ctx, "cases", Row{"id": "C-1"}))

	rows, err := cached.ReadAll(ctx, "cases")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// Append drops the snapshot so the next read sees the new row.
	require.NoError(t, cached.Append(ctx, "cases", Row{"id": "C-2"}))
	rows, err = cached.ReadAll(ctx, "cases")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// UpdateRow likewise.
	require.NoError(t, cached.UpdateRow(ctx, "cases", 2, Row{"id": "C-1", "age": "30"}))
	rows, err = cached.ReadAll(ctx, "cases")
	require.NoError(t, err)
	assert.Equal(t, "30", rows[0]["age"])
}

func TestCachedTableFailedReadCachesNothing(t *testing.T) {
	ctx := context.Background()
	inner := &countingTable{MemoryTable: NewMemoryTable(testSchema())}
	inner.readErr = errors.New("backend down")
	cached := NewCachedTable(inner, NewMemoryRowCache(time.Minute, nil), zap.NewNop())

	_, err := cached.ReadAll(ctx, "cases")
	require.Error(t, err)

	// Recovery must hit the backend again, not a poisoned entry.
	inner.readErr = nil
	_, err = cached.ReadAll(ctx, "cases")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.reads)
}

// gatedTable holds its first backend read in flight until released, so a
// test can land a write in the middle of it.
type gatedTable struct {
	*MemoryTable
	reads   int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedTable) ReadAll(ctx context.Context, table string) ([]Row, error) {
	if atomic.AddInt32(&g.reads, 1) == 1 {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.MemoryTable.ReadAll(ctx, table)
}

func TestCachedTableInFlightReadDoesNotResurrectStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	inner := &gatedTable{
		MemoryTable: NewMemoryTable(testSchema()),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	cached := NewCachedTable(inner, NewMemoryRowCache(time.Minute, nil), zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cached.ReadAll(ctx, "cases")
	}()
	<-inner.entered // the reader holds a pre-write snapshot in flight

	require.NoError(t, cached.Append(ctx, "cases", Row{"id": "C-1"}))
	close(inner.release)
	<-done

	// The stale snapshot must not have been installed over the append's
	// invalidation; the next read has to see the new row.
	rows, err := cached.ReadAll(ctx, "cases")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "C-1", rows[0]["id"])
}

func TestCachedTableFindRowKeyBypassesCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingTable{MemoryTable: NewMemoryTable(testSchema())}
	cached := NewCachedTable(inner, NewMemoryRowCache(time.Minute, nil), zap.NewNop())

	require.NoError(t, cached.Append(ctx, "cases", Row{"id": "C-1"}))
	_, err := cached.ReadAll(ctx, "cases")
	require.NoError(t, err)

	// Appending behind a warm cache must still be visible to key lookups.
	require.NoError(t, inner.MemoryTable.Append(ctx, "cases", Row{"id": "C-2"}))

	pos, err := cached.FindRowKey(ctx, "cases", "id", "C-2")
	require.NoError(t, err)
	assert.Equal(t, 3, pos)
}
