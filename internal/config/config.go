package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "REBALANCE_"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Snapshot SnapshotConfig `koanf:"snapshot"`
	Distance DistanceConfig `koanf:"distance"`
	Demand   DemandConfig   `koanf:"demand"`
	Vehicle  VehicleConfig  `koanf:"vehicle"`
	Solver   SolverConfig   `koanf:"solver"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Port string `koanf:"port"`
}

// SnapshotConfig selects where station snapshots are read from.
type SnapshotConfig struct {
	Driver string `koanf:"driver"` // sqlite | json
	Path   string `koanf:"path"`
}

type DistanceConfig struct {
	Provider          string  `koanf:"provider"` // haversine | ors
	SpeedKph          float64 `koanf:"speed_kph"`
	CostMode          string  `koanf:"cost_mode"` // distance | time | weighted
	DistanceWeight    float64 `koanf:"distance_weight"`
	TimeWeight        float64 `koanf:"time_weight"`
	ORSAPIKey         string  `koanf:"ors_api_key"`
	ORSBaseURL        string  `koanf:"ors_base_url"`
	ORSProfile        string  `koanf:"ors_profile"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	// Cache is the persistent second-level cache: none | sqlite | postgres | redis.
	Cache       string `koanf:"cache"`
	CachePath   string `koanf:"cache_path"`
	DatabaseURL string `koanf:"database_url"`
	RedisURL    string `koanf:"redis_url"`
	// CacheTTL is how long persisted distances stay valid; zero keeps them.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

type DemandConfig struct {
	TargetFill       float64            `koanf:"target_fill"`
	MinimumThreshold int                `koanf:"minimum_threshold"`
	Overrides        map[string]float64 `koanf:"overrides"`
}

type VehicleConfig struct {
	Capacity       int     `koanf:"capacity"`
	DepotStationID string  `koanf:"depot_station_id"`
	DepotLon       float64 `koanf:"depot_lon"`
	DepotLat       float64 `koanf:"depot_lat"`
}

type SolverConfig struct {
	Algorithm         string        `koanf:"algorithm"`
	MaxIterations     int           `koanf:"max_iterations"`
	TimeBudget        time.Duration `koanf:"time_budget"`
	ExactThreshold    int           `koanf:"exact_threshold"`
	UnresolvedPenalty float64       `koanf:"unresolved_penalty"`
}

type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server:   ServerConfig{Port: "8080"},
		Snapshot: SnapshotConfig{Driver: "sqlite", Path: "data/bicloo.db"},
		Distance: DistanceConfig{
			Provider:          "haversine",
			SpeedKph:          25,
			CostMode:          "distance",
			DistanceWeight:    1,
			TimeWeight:        0,
			ORSBaseURL:        "https://api.openrouteservice.org",
			ORSProfile:        "driving-car",
			RequestsPerSecond: 1,
			Cache:             "none",
			CacheTTL:          24 * time.Hour,
		},
		Demand:  DemandConfig{TargetFill: 0.5, MinimumThreshold: 2},
		Vehicle: VehicleConfig{Capacity: 20},
		Solver: SolverConfig{
			Algorithm:         "local_search",
			MaxIterations:     1000,
			TimeBudget:        5 * time.Second,
			ExactThreshold:    12,
			UnresolvedPenalty: 1e6,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads defaults, then the optional file (yaml or json by extension), then
// REBALANCE_ environment overrides (REBALANCE_SOLVER__ALGORITHM=exact).
func Load(path string) (*Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("load config: unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load config: read %q: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load config: env overrides: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Snapshot.Driver {
	case "sqlite", "json":
	default:
		errs = append(errs, fmt.Errorf("snapshot.driver %q must be sqlite or json", c.Snapshot.Driver))
	}
	switch c.Distance.Provider {
	case "haversine":
	case "ors":
		if strings.TrimSpace(c.Distance.ORSAPIKey) == "" {
			errs = append(errs, errors.New("distance.ors_api_key is required for the ors provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("distance.provider %q must be haversine or ors", c.Distance.Provider))
	}
	switch c.Distance.Cache {
	case "none", "":
	case "sqlite":
		if c.Distance.CachePath == "" {
			errs = append(errs, errors.New("distance.cache_path is required for the sqlite cache"))
		}
	case "postgres":
		if c.Distance.DatabaseURL == "" {
			errs = append(errs, errors.New("distance.database_url is required for the postgres cache"))
		}
	case "redis":
		if c.Distance.RedisURL == "" {
			errs = append(errs, errors.New("distance.redis_url is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("distance.cache %q is not supported", c.Distance.Cache))
	}
	if c.Distance.SpeedKph <= 0 {
		errs = append(errs, errors.New("distance.speed_kph must be positive"))
	}
	if c.Demand.TargetFill < 0 || c.Demand.TargetFill > 1 {
		errs = append(errs, errors.New("demand.target_fill must be within [0,1]"))
	}
	if c.Demand.MinimumThreshold < 0 {
		errs = append(errs, errors.New("demand.minimum_threshold must be >= 0"))
	}
	if c.Vehicle.Capacity < 0 {
		errs = append(errs, errors.New("vehicle.capacity must be >= 0"))
	}
	if c.Solver.ExactThreshold < 0 || c.Solver.MaxIterations < 0 {
		errs = append(errs, errors.New("solver limits must be >= 0"))
	}
	return errors.Join(errs...)
}

// Get returns the environment variable or the fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
