package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebalance-route-service/internal/ports"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisDistanceCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisDistanceCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisDistanceCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t, time.Hour)

	require.NoError(t, c.PutMany(ctx, "A", map[string]ports.DistanceResult{
		"B": {DistanceMeters: 700, DurationSeconds: 90},
	}))

	got, err := c.GetMany(ctx, "A", []string{"B", "C"})
	require.NoError(t, err)
	assert.Equal(t, map[string]ports.DistanceResult{"B": {DistanceMeters: 700, DurationSeconds: 90}}, got)
	assert.Equal(t, "700,90", mr.HGet("rebalance:dist:A", "B"))
	assert.Equal(t, time.Hour, mr.TTL("rebalance:dist:A"))
}

func TestRedisDistanceCache_Expires(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t, time.Minute)

	require.NoError(t, c.PutMany(ctx, "A", map[string]ports.DistanceResult{"B": {DistanceMeters: 1}}))
	mr.FastForward(2 * time.Minute)

	got, err := c.GetMany(ctx, "A", []string{"B"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisDistanceCache_MalformedValue(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t, 0)
	mr.HSet("rebalance:dist:A", "B", "garbage")

	_, err := c.GetMany(ctx, "A", []string{"B"})
	require.Error(t, err)
}

func TestNewRedisDistanceCacheFromURL(t *testing.T) {
	_, err := NewRedisDistanceCacheFromURL("not a url", 0)
	require.Error(t, err)

	mr := miniredis.RunT(t)
	c, err := NewRedisDistanceCacheFromURL("redis://"+mr.Addr()+"/0", time.Minute)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.PutMany(context.Background(), "X", map[string]ports.DistanceResult{"Y": {DistanceMeters: 5, DurationSeconds: 1}}))
	assert.True(t, mr.Exists("rebalance:dist:X"))
}
