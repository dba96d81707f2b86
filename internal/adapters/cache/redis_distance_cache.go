package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"rebalance-route-service/internal/platform/obs"
	"rebalance-route-service/internal/ports"
)

// RedisDistanceCache keeps one hash per origin; each field is a destination key
// and each value is "meters,seconds". The hash expires TTL after its last write.
type RedisDistanceCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisDistanceCache(rdb *redis.Client, ttl time.Duration) *RedisDistanceCache {
	return &RedisDistanceCache{rdb: rdb, prefix: "rebalance:dist:", ttl: ttl}
}

// NewRedisDistanceCacheFromURL parses a redis:// URL and connects lazily.
func NewRedisDistanceCacheFromURL(url string, ttl time.Duration) (*RedisDistanceCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis distance cache: parse url: %w", err)
	}
	return NewRedisDistanceCache(redis.NewClient(opt), ttl), nil
}

func (c *RedisDistanceCache) Close() error { return c.rdb.Close() }

func (c *RedisDistanceCache) key(origin string) string { return c.prefix + origin }

func (c *RedisDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cache.redis.GetMany")(&err)

	if origin == "" {
		return nil, errors.New("get distance cache: origin must not be empty")
	}
	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	vals, err := c.rdb.HMGet(ctx, c.key(origin), uniq...).Result()
	if err != nil {
		return nil, fmt.Errorf("get distance cache: hmget: %w", err)
	}

	out := make(map[string]ports.DistanceResult, len(uniq))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		r, err := decodeResult(s)
		if err != nil {
			return nil, fmt.Errorf("get distance cache dest=%q: %w", uniq[i], err)
		}
		out[uniq[i]] = r
	}
	return out, nil
}

func (c *RedisDistanceCache) PutMany(ctx context.Context, origin string, results map[string]ports.DistanceResult) (err error) {
	defer obs.Time(ctx, "distance.cache.redis.PutMany")(&err)

	if origin == "" {
		return errors.New("insert distance cache: origin must not be empty")
	}
	if len(results) == 0 {
		return nil
	}

	fields := make([]any, 0, 2*len(results))
	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return errors.New("insert distance cache: empty destination key")
		}
		fields = append(fields, dest, encodeResult(r))
	}

	key := c.key(origin)
	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, fields...)
		if c.ttl > 0 {
			p.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert distance cache: pipeline: %w", err)
	}
	return nil
}

func encodeResult(r ports.DistanceResult) string {
	return strconv.Itoa(r.DistanceMeters) + "," + strconv.Itoa(r.DurationSeconds)
}

func decodeResult(s string) (ports.DistanceResult, error) {
	m, sec, ok := strings.Cut(s, ",")
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("malformed value %q", s)
	}
	meters, err := strconv.Atoi(m)
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf("malformed meters %q: %w", m, err)
	}
	seconds, err := strconv.Atoi(sec)
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf("malformed seconds %q: %w", sec, err)
	}
	return ports.DistanceResult{DistanceMeters: meters, DurationSeconds: seconds}, nil
}
