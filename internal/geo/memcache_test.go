package geo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rainparade/internal/types"
)

func TestMemoryCachePutGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	pt := types.GeoPoint{Latitude: -6.77, Longitude: -79.84}

	addr, err := c.Get(ctx, pt)
	require.NoError(t, err)
	assert.Nil(t, addr, "empty cache must miss")

	stored := &types.Address{State: "Lambayeque", CountryCode: "pe"}
	require.NoError(t, c.Put(ctx, pt, stored, time.Hour))

	got, err := c.Get(ctx, pt)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *stored, *got)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCacheKeyRounding(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx,
		types.GeoPoint{Latitude: -6.771437, Longitude: -79.840592},
		&types.Address{State: "Lambayeque"}, time.Hour))

	// A nearby point with the same two-decimal rounding hits the same entry.
	got, err := c.Get(ctx, types.GeoPoint{Latitude: -6.7703, Longitude: -79.8351})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Lambayeque", got.State)
}

// fixedClock is a settable Clock for TTL tests.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func TestMemoryCacheExpiry(t *testing.T) {
	clk := &fixedClock{now: time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache()
	c.clock = clk
	ctx := context.Background()
	pt := types.GeoPoint{Latitude: 1, Longitude: 2}

	require.NoError(t, c.Put(ctx, pt, &types.Address{State: "x"}, time.Hour))

	got, err := c.Get(ctx, pt)
	require.NoError(t, err)
	require.NotNil(t, got, "entry must be live before the TTL elapses")

	clk.now = clk.now.Add(time.Hour + time.Second)

	got, err = c.Get(ctx, pt)
	require.NoError(t, err)
	assert.Nil(t, got, "expired entry must miss")
	assert.Zero(t, c.Len(), "expired entry must be removed")
}

func TestMemoryCacheDeleteExpired(t *testing.T) {
	clk := &fixedClock{now: time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache()
	c.clock = clk
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, types.GeoPoint{Latitude: 1, Longitude: 1},
		&types.Address{State: "short"}, time.Minute))
	require.NoError(t, c.Put(ctx, types.GeoPoint{Latitude: 2, Longitude: 2},
		&types.Address{State: "long"}, time.Hour))

	clk.now = clk.now.Add(10 * time.Minute)

	deleted, err := c.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, c.Len())

	got, err := c.Get(ctx, types.GeoPoint{Latitude: 2, Longitude: 2})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "long", got.State)
}

func TestMemoryCacheOverwrite(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	pt := types.GeoPoint{Latitude: 1, Longitude: 2}

	require.NoError(t, c.Put(ctx, pt, &types.Address{State: "old"}, time.Hour))
	require.NoError(t, c.Put(ctx, pt, &types.Address{State: "new"}, time.Hour))

	got, err := c.Get(ctx, pt)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.State)
	assert.Equal(t, 1, c.Len())
}
