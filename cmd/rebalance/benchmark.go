package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rebalance-route-service/internal/bootstrap"
	"rebalance-route-service/internal/services"
)

type benchmarkFlags struct {
	instances  int
	stations   int
	capacity   int
	seed       int64
	workers    int
	algorithms []string
	format     string
	output     string
}

var benchOpts benchmarkFlags

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Compare algorithms on generated instances",
	RunE:  runBenchmark,
}

func init() {
	f := benchmarkCmd.Flags()
	f.IntVar(&benchOpts.instances, "instances", 20, "number of generated instances")
	f.IntVar(&benchOpts.stations, "stations", 10, "stations per instance")
	f.IntVar(&benchOpts.capacity, "capacity", 20, "truck capacity")
	f.Int64Var(&benchOpts.seed, "seed", 42, "base seed; instance i uses seed+100*i")
	f.IntVar(&benchOpts.workers, "workers", 0, "concurrent solver runs (default: one per algorithm)")
	f.StringSliceVar(&benchOpts.algorithms, "algorithms", nil, "algorithms to compare (default: all)")
	f.StringVarP(&benchOpts.format, "format", "f", "yaml", "yaml | json")
	f.StringVarP(&benchOpts.output, "output", "o", "", "write the report to a file")
	rootCmd.AddCommand(benchmarkCmd)
}

type algorithmReport struct {
	Algorithm     string  `yaml:"algorithm" json:"algorithm"`
	SuccessRate   float64 `yaml:"success_rate_pct" json:"success_rate_pct"`
	FailedSeeds   []int64 `yaml:"failed_seeds,omitempty" json:"failed_seeds,omitempty"`
	MeanObjective float64 `yaml:"mean_objective" json:"mean_objective"`
	StdObjective  float64 `yaml:"std_objective" json:"std_objective"`
	MeanTimeMs    float64 `yaml:"mean_time_ms" json:"mean_time_ms"`
	MeanGapPct    float64 `yaml:"mean_gap_pct" json:"mean_gap_pct"`
	MeanScore     float64 `yaml:"mean_score" json:"mean_score"`
	MeanResolved  float64 `yaml:"mean_resolved_fraction" json:"mean_resolved_fraction"`
}

type benchmarkReport struct {
	Instances  int               `yaml:"instances" json:"instances"`
	Stations   int               `yaml:"stations" json:"stations"`
	Capacity   int               `yaml:"capacity" json:"capacity"`
	BaseSeed   int64             `yaml:"base_seed" json:"base_seed"`
	Algorithms []algorithmReport `yaml:"algorithms" json:"algorithms"`
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, ctx, logger, err := loadConfig(ctx, "benchmark")
	if err != nil {
		return err
	}

	algorithms := make([]services.Algorithm, 0, len(benchOpts.algorithms))
	for _, name := range benchOpts.algorithms {
		a, err := services.ParseAlgorithm(name)
		if err != nil {
			return err
		}
		algorithms = append(algorithms, a)
	}

	// generated instances are offline: no external routing calls
	distCfg := cfg.Distance
	distCfg.Provider, distCfg.Cache = "haversine", "none"
	provider, closeProvider, err := bootstrap.NewProvider(ctx, distCfg, logger)
	if err != nil {
		return err
	}
	defer closeProvider()

	results, err := services.RunBenchmark(ctx, services.BenchmarkConfig{
		Instances: benchOpts.instances,
		Stations:  benchOpts.stations,
		Capacity:  benchOpts.capacity,
		BaseSeed:  benchOpts.seed,
		Workers:   benchOpts.workers,
		Provider:  provider,
		Cost:      bootstrap.CostConfig(cfg.Distance),
		Options:   bootstrap.SolverOptions(cfg.Solver),
	}, algorithms)
	if err != nil {
		return err
	}

	report := benchmarkReport{
		Instances: benchOpts.instances,
		Stations:  benchOpts.stations,
		Capacity:  benchOpts.capacity,
		BaseSeed:  benchOpts.seed,
	}
	for _, r := range results {
		report.Algorithms = append(report.Algorithms, algorithmReport{
			Algorithm:     string(r.Algorithm),
			SuccessRate:   r.SuccessRate,
			FailedSeeds:   r.FailedSeeds,
			MeanObjective: r.MeanObjective,
			StdObjective:  r.StdObjective,
			MeanTimeMs:    r.MeanTimeMs,
			MeanGapPct:    r.MeanGapPct,
			MeanScore:     r.MeanScore,
			MeanResolved:  r.MeanResolved,
		})
	}
	return writeReport(cmd.OutOrStdout(), benchOpts.output, benchOpts.format, report)
}
