package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/platform/metrics"
	"rebalance-route-service/internal/platform/obs"
	"rebalance-route-service/internal/ports"
)

type CostMode string

const (
	CostDistance CostMode = "distance"
	CostTime     CostMode = "time"
	CostWeighted CostMode = "weighted"
)

// CostConfig turns a distance result into the scalar the solver minimises.
type CostConfig struct {
	Mode           CostMode
	DistanceWeight float64
	TimeWeight     float64
}

func DefaultCostConfig() CostConfig {
	return CostConfig{Mode: CostDistance, DistanceWeight: 1}
}

func (c CostConfig) Validate() error {
	switch c.Mode {
	case CostDistance, CostTime:
	case CostWeighted:
		if c.DistanceWeight < 0 || c.TimeWeight < 0 {
			return fmt.Errorf("cost config: weights must be >= 0, got distance=%v time=%v", c.DistanceWeight, c.TimeWeight)
		}
		if c.DistanceWeight == 0 && c.TimeWeight == 0 {
			return errors.New("cost config: weighted mode needs a positive weight")
		}
	default:
		return fmt.Errorf("cost config: unknown mode %q", c.Mode)
	}
	return nil
}

// Cost maps a distance result to a non-negative cost.
func (c CostConfig) Cost(r ports.DistanceResult) float64 {
	switch c.Mode {
	case CostTime:
		return float64(r.DurationSeconds)
	case CostWeighted:
		return c.DistanceWeight*float64(r.DistanceMeters) + c.TimeWeight*float64(r.DurationSeconds)
	}
	return float64(r.DistanceMeters)
}

type pointKey struct {
	id       string
	located  bool
	lon, lat float64
}

func keyOf(p domain.Point) pointKey {
	if p.Location == nil {
		return pointKey{id: p.ID}
	}
	return pointKey{id: p.ID, located: true, lon: p.Location.Lon, lat: p.Location.Lat}
}

type pairKey struct{ from, to pointKey }

type oracleEntry struct {
	res ports.DistanceResult
	err error
}

type OracleStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// DistanceOracle is the session-scoped, append-only cache in front of a
// DistanceProvider. Entries are keyed by the ordered pair of ids and
// coordinates, so moving a station yields a fresh lookup. Pairs the provider
// reports as unreachable are cached like successes; other provider failures are
// returned as unreachable but not cached. It is safe for concurrent use.
type DistanceOracle struct {
	provider ports.DistanceProvider
	cost     CostConfig
	logger   zerolog.Logger

	mu      sync.RWMutex
	entries map[pairKey]oracleEntry

	hits   atomic.Int64
	misses atomic.Int64
}

func NewDistanceOracle(provider ports.DistanceProvider, cfg CostConfig, logger zerolog.Logger) (*DistanceOracle, error) {
	if provider == nil {
		return nil, errors.New("new distance oracle: provider is nil")
	}
	if cfg.Mode == "" {
		cfg = DefaultCostConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new distance oracle: %w", err)
	}
	return &DistanceOracle{
		provider: provider,
		cost:     cfg,
		logger:   logger.With().Str("component", "oracle").Logger(),
		entries:  make(map[pairKey]oracleEntry),
	}, nil
}

func (o *DistanceOracle) CostConfig() CostConfig { return o.cost }

// Cost returns the configured cost of travelling from a to b.
func (o *DistanceOracle) Cost(ctx context.Context, a, b domain.Point) (float64, error) {
	r, err := o.Distance(ctx, a, b)
	if err != nil {
		return 0, err
	}
	return o.cost.Cost(r), nil
}

// Distance returns the travel distance and duration from a to b. A point
// without coordinates is unreachable and never reaches the provider.
func (o *DistanceOracle) Distance(ctx context.Context, a, b domain.Point) (ports.DistanceResult, error) {
	if a.Location == nil || b.Location == nil {
		return ports.DistanceResult{}, &domain.UnreachableError{From: a.ID, To: b.ID, Reason: "missing coordinates"}
	}
	if a.SameLocation(b) {
		return ports.DistanceResult{}, nil
	}

	key := pairKey{from: keyOf(a), to: keyOf(b)}
	if e, ok := o.lookup(key); ok {
		o.hits.Inc()
		metrics.DistanceLookups.WithLabelValues("hit").Inc()
		return e.res, e.err
	}

	res, err := o.provider.GetDistance(ctx, a, b)
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		return ports.DistanceResult{}, ctxErr
	}
	o.misses.Inc()
	metrics.DistanceLookups.WithLabelValues("miss").Inc()

	if err != nil {
		var ue *domain.UnreachableError
		if !errors.As(err, &ue) {
			// transport or upstream failure: report it for this lookup only
			o.logger.Warn().Err(err).Str("from", a.ID).Str("to", b.ID).Msg("distance lookup failed")
			return ports.DistanceResult{}, &domain.UnreachableError{From: a.ID, To: b.ID, Reason: err.Error()}
		}
		err = ue
	}

	e := o.store(key, oracleEntry{res: res, err: err})
	return e.res, e.err
}

// Warm prefetches every ordered pair among points. Origins are fetched in
// parallel; providers that support matrices get one row request per origin.
func (o *DistanceOracle) Warm(ctx context.Context, points []domain.Point) (err error) {
	defer obs.Time(ctx, "oracle.Warm")(&err)

	mp, isMatrix := o.provider.(ports.DistanceMatrixProvider)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, origin := range points {
		if origin.Location == nil {
			continue
		}
		missing := make([]domain.Point, 0, len(points))
		for _, d := range points {
			if d.Location == nil || origin.SameLocation(d) {
				continue
			}
			if _, ok := o.lookup(pairKey{from: keyOf(origin), to: keyOf(d)}); !ok {
				missing = append(missing, d)
			}
		}
		if len(missing) == 0 {
			continue
		}

		origin := origin
		g.Go(func() error {
			if !isMatrix {
				for _, d := range missing {
					if _, err := o.Distance(gctx, origin, d); err != nil {
						var ue *domain.UnreachableError
						if !errors.As(err, &ue) {
							return err
						}
					}
				}
				return nil
			}

			row, err := mp.GetDistances(gctx, origin, missing)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				// pairs fall back to single lookups on first use
				o.logger.Warn().Err(err).Str("origin", origin.ID).Msg("matrix prefetch failed")
				return nil
			}
			for _, d := range missing {
				key := pairKey{from: keyOf(origin), to: keyOf(d)}
				if r, ok := row[d.ID]; ok {
					o.store(key, oracleEntry{res: r})
				} else {
					o.store(key, oracleEntry{err: &domain.UnreachableError{From: origin.ID, To: d.ID, Reason: "no route in matrix"}})
				}
				o.misses.Inc()
				metrics.DistanceLookups.WithLabelValues("miss").Inc()
			}
			return nil
		})
	}
	return g.Wait()
}

func (o *DistanceOracle) Stats() OracleStats {
	o.mu.RLock()
	n := len(o.entries)
	o.mu.RUnlock()
	return OracleStats{Hits: o.hits.Load(), Misses: o.misses.Load(), Entries: n}
}

func (o *DistanceOracle) lookup(k pairKey) (oracleEntry, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.entries[k]
	return e, ok
}

// store inserts e unless another caller got there first; the first write wins.
func (o *DistanceOracle) store(k pairKey, e oracleEntry) oracleEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	if prev, ok := o.entries[k]; ok {
		return prev
	}
	o.entries[k] = e
	return e
}
