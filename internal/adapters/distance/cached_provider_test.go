package distance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/ports"
)

type memCache struct {
	rows map[string]map[string]ports.DistanceResult
}

func (m *memCache) GetMany(_ context.Context, origin string, dests []string) (map[string]ports.DistanceResult, error) {
	out := map[string]ports.DistanceResult{}
	for _, d := range dests {
		if r, ok := m.rows[origin][d]; ok {
			out[d] = r
		}
	}
	return out, nil
}

func (m *memCache) PutMany(_ context.Context, origin string, results map[string]ports.DistanceResult) error {
	if m.rows[origin] == nil {
		m.rows[origin] = map[string]ports.DistanceResult{}
	}
	for k, v := range results {
		m.rows[origin][k] = v
	}
	return nil
}

func TestCachedProvider_StoresAndReuses(t *testing.T) {
	a := domain.NewPoint("A", -1.56, 47.2)
	b := domain.NewPoint("B", -1.55, 47.2)
	inner := NewMockDistanceProvider([]MockPair{{From: "A", To: "B", Meters: 700, Seconds: 90}})
	cache := &memCache{rows: map[string]map[string]ports.DistanceResult{}}
	p := NewCachedProvider(inner, cache)

	for i := 0; i < 3; i++ {
		r, err := p.GetDistance(context.Background(), a, b)
		require.NoError(t, err)
		assert.Equal(t, 700, r.DistanceMeters)
	}
	assert.Equal(t, 1, inner.Calls())
	assert.Contains(t, cache.rows[PointKey(a)], PointKey(b))
}

func TestCachedProvider_MovedStationMisses(t *testing.T) {
	a := domain.NewPoint("A", -1.56, 47.2)
	b := domain.NewPoint("B", -1.55, 47.2)
	moved := domain.NewPoint("B", -1.50, 47.2)
	inner := NewMockDistanceProvider([]MockPair{{From: "A", To: "B", Meters: 700, Seconds: 90}})
	p := NewCachedProvider(inner, &memCache{rows: map[string]map[string]ports.DistanceResult{}})

	_, err := p.GetDistance(context.Background(), a, b)
	require.NoError(t, err)
	_, err = p.GetDistance(context.Background(), a, moved)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.Calls())
}

func TestCachedProvider_UnreachableNotStored(t *testing.T) {
	a := domain.NewPoint("A", 0, 0)
	c := domain.NewPoint("C", 0, 1)
	inner := NewMockDistanceProvider(nil)
	cache := &memCache{rows: map[string]map[string]ports.DistanceResult{}}
	p := NewCachedProvider(inner, cache)

	_, err := p.GetDistance(context.Background(), a, c)
	var ue *domain.UnreachableError
	require.True(t, errors.As(err, &ue))
	assert.Empty(t, cache.rows)
}

func TestPointKey(t *testing.T) {
	assert.Equal(t, "S1@-1.560000,47.200000", PointKey(domain.NewPoint("S1", -1.56, 47.2)))
	assert.Equal(t, "S1", PointKey(domain.Point{ID: "S1"}))
}
