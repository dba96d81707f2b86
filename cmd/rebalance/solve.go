package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rebalance-route-service/internal/adapters/repositories"
	"rebalance-route-service/internal/bootstrap"
	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/ports"
	"rebalance-route-service/internal/services"
)

type solveFlags struct {
	snapshotFile string
	snapshotID   string
	algorithm    string
	capacity     int
	target       float64
	depotStation string
	depotLon     float64
	depotLat     float64
	compare      bool
	format       string
	output       string
}

var solveOpts solveFlags

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Plan a rebalancing route for a snapshot",
	RunE:  runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.StringVar(&solveOpts.snapshotFile, "snapshot", "", "snapshot JSON file or directory (overrides the configured store)")
	f.StringVar(&solveOpts.snapshotID, "snapshot-id", "", "snapshot id (default: latest)")
	f.StringVarP(&solveOpts.algorithm, "algorithm", "a", "", "nearest_neighbor | savings | local_search | exact")
	f.IntVar(&solveOpts.capacity, "capacity", 0, "truck capacity in bikes (default from config)")
	f.Float64Var(&solveOpts.target, "target", -1, "uniform target fill fraction (default from config)")
	f.StringVar(&solveOpts.depotStation, "depot-station", "", "station whose location is the depot")
	f.Float64Var(&solveOpts.depotLon, "depot-lon", 0, "depot longitude")
	f.Float64Var(&solveOpts.depotLat, "depot-lat", 0, "depot latitude")
	f.BoolVar(&solveOpts.compare, "compare", false, "run every algorithm on the same snapshot")
	f.StringVarP(&solveOpts.format, "format", "f", "yaml", "yaml | json")
	f.StringVarP(&solveOpts.output, "output", "o", "", "write the report to a file")
	rootCmd.AddCommand(solveCmd)
}

type stopReport struct {
	Station   string `yaml:"station" json:"station"`
	Action    string `yaml:"action" json:"action"`
	Quantity  int    `yaml:"quantity" json:"quantity"`
	LoadAfter int    `yaml:"load_after" json:"load_after"`
}

type routeReport struct {
	RouteID             string         `yaml:"route_id" json:"route_id"`
	Algorithm           string         `yaml:"algorithm" json:"algorithm"`
	Sequence            []string       `yaml:"sequence" json:"sequence"`
	Stops               []stopReport   `yaml:"stops" json:"stops"`
	TotalCost           float64        `yaml:"total_cost" json:"total_cost"`
	DistanceMeters      int            `yaml:"distance_meters" json:"distance_meters"`
	DurationSeconds     int            `yaml:"duration_seconds" json:"duration_seconds"`
	ResolvedFraction    float64        `yaml:"resolved_fraction" json:"resolved_fraction"`
	Unresolved          map[string]int `yaml:"unresolved,omitempty" json:"unresolved,omitempty"`
	MaxLoad             int            `yaml:"max_load" json:"max_load"`
	Iterations          int            `yaml:"iterations" json:"iterations"`
	BudgetExhausted     bool           `yaml:"budget_exhausted" json:"budget_exhausted"`
	CapacityUtilization float64        `yaml:"capacity_utilization" json:"capacity_utilization"`
}

type solveReport struct {
	SnapshotID string         `yaml:"snapshot_id" json:"snapshot_id"`
	Capacity   int            `yaml:"capacity" json:"capacity"`
	Imbalances map[string]int `yaml:"imbalances" json:"imbalances"`
	Routes     []routeReport  `yaml:"routes" json:"routes"`
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, ctx, logger, err := loadConfig(ctx, "solve")
	if err != nil {
		return err
	}

	var repo ports.SnapshotRepository
	if solveOpts.snapshotFile != "" {
		repo = repositories.NewJSONSnapshotRepository(solveOpts.snapshotFile)
	} else {
		r, closeRepo, err := bootstrap.OpenSnapshots(cfg.Snapshot)
		if err != nil {
			return err
		}
		defer closeRepo()
		repo = r
	}

	provider, closeProvider, err := bootstrap.NewProvider(ctx, cfg.Distance, logger)
	if err != nil {
		return err
	}
	defer closeProvider()

	oracle, err := services.NewDistanceOracle(provider, bootstrap.CostConfig(cfg.Distance), logger)
	if err != nil {
		return err
	}

	defaults, err := bootstrap.PlanDefaults(cfg)
	if err != nil {
		return err
	}
	req := services.PlanRequest{
		SnapshotID:      solveOpts.snapshotID,
		Algorithm:       defaults.Algorithm,
		VehicleID:       "truck-1",
		VehicleCapacity: defaults.VehicleCapacity,
		Policy:          defaults.Policy,
		DepotStationID:  defaults.DepotStationID,
		DepotLocation:   defaults.DepotLocation,
		Options:         defaults.Options,
	}
	if solveOpts.algorithm != "" {
		if req.Algorithm, err = services.ParseAlgorithm(solveOpts.algorithm); err != nil {
			return err
		}
	}
	if solveOpts.capacity > 0 {
		req.VehicleCapacity = solveOpts.capacity
	}
	if solveOpts.target >= 0 {
		req.Policy.Uniform = solveOpts.target
	}
	if solveOpts.depotStation != "" {
		req.DepotStationID, req.DepotLocation = solveOpts.depotStation, nil
	} else if cmd.Flags().Changed("depot-lon") || cmd.Flags().Changed("depot-lat") {
		req.DepotStationID = ""
		req.DepotLocation = &domain.Coordinates{Lon: solveOpts.depotLon, Lat: solveOpts.depotLat}
	}

	algorithms := []services.Algorithm{req.Algorithm}
	if solveOpts.compare {
		algorithms = services.Algorithms()
	}

	var report solveReport
	for _, algo := range algorithms {
		req.Algorithm = algo
		res, err := services.PlanRebalancing(ctx, req, repo, oracle)
		if err != nil {
			return fmt.Errorf("solve %s: %w", algo, err)
		}
		report.SnapshotID = res.SnapshotID
		report.Capacity = req.VehicleCapacity
		report.Imbalances = res.Imbalances
		report.Routes = append(report.Routes, toRouteReport(res))
	}

	stats := oracle.Stats()
	logger.Info().Int64("hits", stats.Hits).Int64("misses", stats.Misses).Int("entries", stats.Entries).Msg("distance lookups")

	return writeReport(cmd.OutOrStdout(), solveOpts.output, solveOpts.format, report)
}

func toRouteReport(res *services.PlanResult) routeReport {
	r, m := res.Route, res.Metrics
	out := routeReport{
		RouteID:             r.ID,
		Algorithm:           r.Algorithm,
		Sequence:            r.Sequence(),
		Stops:               make([]stopReport, 0, len(r.Stops)),
		TotalCost:           m.TotalCost,
		DistanceMeters:      m.TotalDistanceMeters,
		DurationSeconds:     m.TotalDurationSeconds,
		ResolvedFraction:    m.ImbalanceResolvedFraction,
		Unresolved:          m.Unresolved,
		MaxLoad:             m.MaxLoad,
		Iterations:          m.Iterations,
		BudgetExhausted:     m.BudgetExhausted,
		CapacityUtilization: m.CapacityUtilization,
	}
	for _, s := range r.Stops {
		out.Stops = append(out.Stops, stopReport{
			Station:   s.StationID,
			Action:    string(s.Action),
			Quantity:  s.Quantity,
			LoadAfter: s.LoadAfter,
		})
	}
	return out
}
