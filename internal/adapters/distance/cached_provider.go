package distance

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/platform/obs"
	"rebalance-route-service/internal/ports"
)

// PointKey builds the persistent cache key of a point. Coordinates are part of
// the key so a moved station never reads a stale distance.
func PointKey(p domain.Point) string {
	if p.Location == nil {
		return p.ID
	}
	return p.ID + "@" +
		strconv.FormatFloat(p.Location.Lon, 'f', 6, 64) + "," +
		strconv.FormatFloat(p.Location.Lat, 'f', 6, 64)
}

// CachedProvider checks a persistent DistanceCache before delegating to the
// wrapped provider. Only successful lookups are stored.
type CachedProvider struct {
	inner ports.DistanceProvider
	cache ports.DistanceCache
}

func NewCachedProvider(inner ports.DistanceProvider, cache ports.DistanceCache) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache}
}

func (c *CachedProvider) GetDistance(ctx context.Context, origin, destination domain.Point) (ports.DistanceResult, error) {
	res, err := c.GetDistances(ctx, origin, []domain.Point{destination})
	if err != nil {
		return ports.DistanceResult{}, err
	}
	r, ok := res[destination.ID]
	if !ok {
		// replay the inner provider to surface its own error
		return c.inner.GetDistance(ctx, origin, destination)
	}
	return r, nil
}

// GetDistances serves hits from the cache and fetches the misses in one batch
// when the wrapped provider supports it.
func (c *CachedProvider) GetDistances(
	ctx context.Context,
	origin domain.Point,
	destinations []domain.Point,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cached.GetDistances")(&err)

	if origin.Location == nil {
		return map[string]ports.DistanceResult{}, nil
	}

	originKey := PointKey(origin)
	keyToID := make(map[string]string, len(destinations))
	keys := make([]string, 0, len(destinations))
	for _, d := range destinations {
		if d.Location == nil {
			continue
		}
		k := PointKey(d)
		if _, ok := keyToID[k]; ok {
			continue
		}
		keyToID[k] = d.ID
		keys = append(keys, k)
	}

	out := make(map[string]ports.DistanceResult, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	hits, err := c.cache.GetMany(ctx, originKey, keys)
	if err != nil {
		return nil, fmt.Errorf("cached provider: get cache: %w", err)
	}

	misses := make([]domain.Point, 0, len(keys))
	for _, d := range destinations {
		if d.Location == nil {
			continue
		}
		if r, ok := hits[PointKey(d)]; ok {
			out[d.ID] = r
			continue
		}
		if _, dup := out[d.ID]; dup {
			continue
		}
		misses = append(misses, d)
	}

	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := c.fetch(ctx, origin, misses)
	if err != nil {
		return nil, err
	}

	toStore := make(map[string]ports.DistanceResult, len(fetched))
	for _, d := range misses {
		r, ok := fetched[d.ID]
		if !ok {
			continue
		}
		out[d.ID] = r
		toStore[PointKey(d)] = r
	}

	if len(toStore) > 0 {
		if err := c.cache.PutMany(ctx, originKey, toStore); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("origin", origin.ID).Msg("distance cache write failed")
		}
	}

	return out, nil
}

func (c *CachedProvider) fetch(ctx context.Context, origin domain.Point, dests []domain.Point) (map[string]ports.DistanceResult, error) {
	if mp, ok := c.inner.(ports.DistanceMatrixProvider); ok {
		res, err := mp.GetDistances(ctx, origin, dests)
		if err != nil {
			return nil, fmt.Errorf("cached provider: fetch row: %w", err)
		}
		return res, nil
	}

	out := make(map[string]ports.DistanceResult, len(dests))
	for _, d := range dests {
		r, err := c.inner.GetDistance(ctx, origin, d)
		if err != nil {
			var ue *domain.UnreachableError
			if errors.As(err, &ue) {
				continue
			}
			return nil, fmt.Errorf("cached provider: fetch %q -> %q: %w", origin.ID, d.ID, err)
		}
		out[d.ID] = r
	}
	return out, nil
}
