package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebalance-route-service/internal/platform/db"
	"rebalance-route-service/internal/ports"
)

func newSqliteCache(t *testing.T, maxAge time.Duration) *SqliteDistanceCache {
	t.Helper()
	conn, err := db.OpenSqlite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := NewSqliteDistanceCache(conn, maxAge)
	require.NoError(t, c.EnsureSchema(context.Background()))
	return c
}

func TestSqliteDistanceCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newSqliteCache(t, 0)

	err := c.PutMany(ctx, "A", map[string]ports.DistanceResult{
		"B": {DistanceMeters: 700, DurationSeconds: 90},
		"C": {DistanceMeters: 1400, DurationSeconds: 180},
	})
	require.NoError(t, err)

	got, err := c.GetMany(ctx, "A", []string{"B", " B ", "C", "D", ""})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 700, got["B"].DistanceMeters)
	assert.Equal(t, 180, got["C"].DurationSeconds)

	// overwrite
	require.NoError(t, c.PutMany(ctx, "A", map[string]ports.DistanceResult{"B": {DistanceMeters: 710, DurationSeconds: 91}}))
	got, err = c.GetMany(ctx, "A", []string{"B"})
	require.NoError(t, err)
	assert.Equal(t, 710, got["B"].DistanceMeters)

	// direction matters
	got, err = c.GetMany(ctx, "B", []string{"A"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSqliteDistanceCache_ExpiredRowsMiss(t *testing.T) {
	ctx := context.Background()
	c := newSqliteCache(t, time.Hour)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	require.NoError(t, c.PutMany(ctx, "A", map[string]ports.DistanceResult{"B": {DistanceMeters: 1}}))

	c.now = func() time.Time { return base.Add(30 * time.Minute) }
	got, err := c.GetMany(ctx, "A", []string{"B"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	got, err = c.GetMany(ctx, "A", []string{"B"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSqliteDistanceCache_RejectsEmptyKeys(t *testing.T) {
	ctx := context.Background()
	c := newSqliteCache(t, 0)

	_, err := c.GetMany(ctx, "", []string{"B"})
	require.Error(t, err)
	require.Error(t, c.PutMany(ctx, "A", map[string]ports.DistanceResult{" ": {}}))
}
