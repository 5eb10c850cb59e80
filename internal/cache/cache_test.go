package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"inventory-transfer/internal/config"
)

func TestInMemoryCache_JSONRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	key := WarehouseInventoryKey(4, 0, 0)
	assert.Equal(t, "warehouse_inventory:4:0.0", key)

	require.NoError(t, SetJSON(ctx, c, key, map[string]int{"available": 8}, 300*time.Second))

	var got map[string]int
	require.NoError(t, GetJSON(ctx, c, key, &got))
	assert.Equal(t, 8, got["available"])

	now = now.Add(301 * time.Second)
	assert.ErrorIs(t, GetJSON(ctx, c, key, &got), ErrCacheMiss)
}

func TestInMemoryCache_DeleteAndPattern(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	for _, k := range []string{"warehouse_inventory:1", "warehouse_inventory:2", "other:1"} {
		require.NoError(t, c.Set(ctx, k, []byte("x"), 0))
	}

	require.NoError(t, c.Delete(ctx, "warehouse_inventory:1"))
	_, err := c.Get(ctx, "warehouse_inventory:1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.DeleteByPattern(ctx, "warehouse_inventory:*"))
	_, err = c.Get(ctx, "warehouse_inventory:2")
	assert.ErrorIs(t, err, ErrCacheMiss)

	v, err := c.Get(ctx, "other:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), v)
}

func TestInMemoryCache_Incr(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	n, err := c.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = c.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, c.Set(ctx, "text", []byte("abc"), 0))
	_, err = c.Incr(ctx, "text")
	assert.Error(t, err)
}

func TestInventoryViews_InvalidateRetiresKey(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	views := NewInventoryViews(c)

	before, err := views.Key(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "warehouse_inventory:7:0.0", before)
	other, err := views.Key(ctx, 8)
	require.NoError(t, err)

	require.NoError(t, views.Invalidate(ctx, 7))
	after, err := views.Key(ctx, 7)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	// A fill that loaded rows before the invalidation lands on the retired key.
	require.NoError(t, c.Set(ctx, before, []byte("stale"), time.Minute))
	_, err = c.Get(ctx, after)
	assert.ErrorIs(t, err, ErrCacheMiss)

	unchanged, err := views.Key(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, other, unchanged)
}

func TestInventoryViews_InvalidateAll(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	views := NewInventoryViews(c)

	k1, err := views.Key(ctx, 1)
	require.NoError(t, err)
	k2, err := views.Key(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, k1, []byte("x"), 0))
	require.NoError(t, c.Set(ctx, k2, []byte("x"), 0))

	require.NoError(t, views.InvalidateAll(ctx))

	_, err = c.Get(ctx, k1)
	assert.ErrorIs(t, err, ErrCacheMiss)
	n1, err := views.Key(ctx, 1)
	require.NoError(t, err)
	n2, err := views.Key(ctx, 2)
	require.NoError(t, err)
	assert.NotEqual(t, k1, n1)
	assert.NotEqual(t, k2, n2)
}

func TestNew_FallsBackWithoutRedis(t *testing.T) {
	c := New(&config.Config{}, zap.NewNop())
	_, ok := c.(*InMemoryCache)
	assert.True(t, ok)
}
