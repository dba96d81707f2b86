// Package bootstrap turns a loaded configuration into wired adapters and
// services. It is shared by the HTTP server and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"rebalance-route-service/internal/adapters/cache"
	"rebalance-route-service/internal/adapters/distance"
	"rebalance-route-service/internal/adapters/repositories"
	"rebalance-route-service/internal/api/handlers"
	"rebalance-route-service/internal/config"
	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/platform/db"
	"rebalance-route-service/internal/ports"
	"rebalance-route-service/internal/services"
)

// Closer releases whatever a constructor opened.
type Closer func() error

func noop() error { return nil }

// OpenSnapshots returns the configured snapshot repository.
func OpenSnapshots(cfg config.SnapshotConfig) (ports.SnapshotRepository, Closer, error) {
	switch cfg.Driver {
	case "json":
		return repositories.NewJSONSnapshotRepository(cfg.Path), noop, nil
	case "sqlite":
		conn, err := db.OpenSqlite(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open snapshots: %w", err)
		}
		return repositories.NewSqliteSnapshotRepository(conn), conn.Close, nil
	}
	return nil, nil, fmt.Errorf("open snapshots: unknown driver %q", cfg.Driver)
}

// NewProvider builds the distance provider, wrapped by the persistent cache
// when one is configured.
func NewProvider(ctx context.Context, cfg config.DistanceConfig, logger zerolog.Logger) (ports.DistanceProvider, Closer, error) {
	var provider ports.DistanceProvider
	switch cfg.Provider {
	case "haversine":
		provider = distance.NewHaversineProvider(cfg.SpeedKph)
	case "ors":
		ors, err := distance.NewORSDistanceProvider(distance.ORSConfig{
			APIKey:            cfg.ORSAPIKey,
			BaseURL:           cfg.ORSBaseURL,
			Profile:           cfg.ORSProfile,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("new provider: %w", err)
		}
		provider = ors
	default:
		return nil, nil, fmt.Errorf("new provider: unknown provider %q", cfg.Provider)
	}

	store, closeStore, err := openDistanceCache(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("new provider: %w", err)
	}
	if store == nil {
		return provider, noop, nil
	}
	logger.Info().Str("provider", cfg.Provider).Str("cache", cfg.Cache).Msg("persistent distance cache enabled")
	return distance.NewCachedProvider(provider, store), closeStore, nil
}

func openDistanceCache(ctx context.Context, cfg config.DistanceConfig) (ports.DistanceCache, Closer, error) {
	switch cfg.Cache {
	case "", "none":
		return nil, noop, nil
	case "sqlite":
		conn, err := db.OpenSqlite(cfg.CachePath)
		if err != nil {
			return nil, nil, err
		}
		c := cache.NewSqliteDistanceCache(conn, cfg.CacheTTL)
		if err := c.EnsureSchema(ctx); err != nil {
			return nil, nil, errors.Join(err, conn.Close())
		}
		return c, conn.Close, nil
	case "postgres":
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		c := cache.NewSQLDistanceCache(conn, cfg.CacheTTL)
		if err := c.EnsureSchema(ctx); err != nil {
			return nil, nil, errors.Join(err, conn.Close())
		}
		return c, conn.Close, nil
	case "redis":
		c, err := cache.NewRedisDistanceCacheFromURL(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown distance cache %q", cfg.Cache)
}

func CostConfig(cfg config.DistanceConfig) services.CostConfig {
	return services.CostConfig{
		Mode:           services.CostMode(cfg.CostMode),
		DistanceWeight: cfg.DistanceWeight,
		TimeWeight:     cfg.TimeWeight,
	}
}

func SolverOptions(cfg config.SolverConfig) services.SolverOptions {
	return services.SolverOptions{
		MaxIterations:     cfg.MaxIterations,
		TimeBudget:        cfg.TimeBudget,
		ExactThreshold:    cfg.ExactThreshold,
		UnresolvedPenalty: cfg.UnresolvedPenalty,
	}
}

func Policy(cfg config.DemandConfig) services.TargetFillPolicy {
	return services.TargetFillPolicy{
		Uniform:          cfg.TargetFill,
		Overrides:        cfg.Overrides,
		MinimumThreshold: cfg.MinimumThreshold,
	}
}

// PlanDefaults collects the request defaults of the plan endpoint.
func PlanDefaults(cfg *config.Config) (handlers.PlanDefaults, error) {
	algo, err := services.ParseAlgorithm(cfg.Solver.Algorithm)
	if err != nil {
		return handlers.PlanDefaults{}, fmt.Errorf("plan defaults: %w", err)
	}
	d := handlers.PlanDefaults{
		Algorithm:       algo,
		VehicleCapacity: cfg.Vehicle.Capacity,
		Policy:          Policy(cfg.Demand),
		DepotStationID:  cfg.Vehicle.DepotStationID,
		Options:         SolverOptions(cfg.Solver),
		Cost:            CostConfig(cfg.Distance),
	}
	if d.DepotStationID == "" && (cfg.Vehicle.DepotLon != 0 || cfg.Vehicle.DepotLat != 0) {
		d.DepotLocation = &domain.Coordinates{Lon: cfg.Vehicle.DepotLon, Lat: cfg.Vehicle.DepotLat}
	}
	return d, nil
}
