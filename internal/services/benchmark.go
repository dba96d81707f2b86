package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/stat"

	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/ports"
)

// Instance is a generated rebalancing problem.
type Instance struct {
	Seed       int64
	Stations   []domain.Station
	Imbalances map[string]int
	Vehicle    domain.Vehicle
}

var benchmarkCentre = domain.Coordinates{Lon: -1.5536, Lat: 47.2184}

// GenerateInstance builds a deterministic random instance around a fixed
// centre. Imbalances are measured against a half-full target and sum to zero,
// so a large enough truck can resolve everything.
func GenerateInstance(seed int64, nStations, capacity int) Instance {
	rng := rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))

	imbs := make([]int, nStations)
	sum := 0
	for i := 0; i < nStations-1; i++ {
		v := 2 + rng.IntN(7)
		if rng.IntN(2) == 0 {
			v = -v
		}
		imbs[i] = v
		sum += v
	}
	if nStations > 0 {
		imbs[nStations-1] = -sum
	}

	inst := Instance{
		Seed:       seed,
		Stations:   make([]domain.Station, 0, nStations),
		Imbalances: make(map[string]int, nStations),
		Vehicle: domain.Vehicle{
			ID:       "bench",
			Capacity: capacity,
			Depot:    domain.Point{ID: defaultDepotID, Location: &domain.Coordinates{Lon: benchmarkCentre.Lon, Lat: benchmarkCentre.Lat}},
		},
	}
	for i, imb := range imbs {
		// even capacities keep the half-full target integral
		slots := 2 * max(5+rng.IntN(11), abs(imb)+1)
		loc := domain.Coordinates{
			Lon: benchmarkCentre.Lon + (rng.Float64()*2-1)*0.03,
			Lat: benchmarkCentre.Lat + (rng.Float64()*2-1)*0.02,
		}
		st := domain.Station{
			ID:             fmt.Sprintf("S%03d", i+1),
			Name:           "Station " + strconv.Itoa(i+1),
			Location:       &loc,
			Capacity:       slots,
			Bikes:          slots/2 + imb,
			DocksAvailable: slots/2 - imb,
		}
		inst.Stations = append(inst.Stations, st)
		if imb != 0 {
			inst.Imbalances[st.ID] = imb
		}
	}
	return inst
}

type BenchmarkConfig struct {
	Instances int
	Stations  int
	Capacity  int
	BaseSeed  int64
	// Workers bounds concurrent solver runs; zero means one per algorithm.
	Workers  int
	Provider ports.DistanceProvider
	Cost     CostConfig
	Options  SolverOptions
}

// BenchmarkResult aggregates one algorithm's runs over all instances.
type BenchmarkResult struct {
	Algorithm   Algorithm
	Successes   int
	FailedSeeds []int64
	Objectives  []float64
	TimesMs     []float64
	// GapsPct is the relative distance to the best objective per instance.
	GapsPct []float64
	// Scores place each cost between an MST lower bound and twice that bound.
	Scores   []float64
	Resolved []float64

	SuccessRate   float64
	MeanObjective float64
	StdObjective  float64
	MeanTimeMs    float64
	MeanGapPct    float64
	MeanScore     float64
	MeanResolved  float64
}

type benchRun struct {
	ok     bool
	obj    float64
	cost   float64
	timeMs float64
	frac   float64
}

// RunBenchmark solves every generated instance with every algorithm. Runs are
// independent sessions, each with its own oracle, and execute concurrently.
// A failing run is recorded against its seed; only cancellation aborts.
func RunBenchmark(ctx context.Context, cfg BenchmarkConfig, algorithms []Algorithm) ([]BenchmarkResult, error) {
	if cfg.Provider == nil {
		return nil, errors.New("benchmark: provider is required")
	}
	if cfg.Instances <= 0 || cfg.Stations <= 0 {
		return nil, fmt.Errorf("benchmark: need positive instances and stations, got %d and %d", cfg.Instances, cfg.Stations)
	}
	if len(algorithms) == 0 {
		algorithms = Algorithms()
	}
	for _, a := range algorithms {
		if _, err := NewStrategy(a); err != nil {
			return nil, fmt.Errorf("benchmark: %w", err)
		}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = len(algorithms)
	}

	logger := zerolog.Ctx(ctx)
	instances := make([]Instance, cfg.Instances)
	lower := make([]float64, cfg.Instances)
	for i := range instances {
		instances[i] = GenerateInstance(cfg.BaseSeed+int64(i)*100, cfg.Stations, cfg.Capacity)
		lb, err := mstLowerBound(ctx, instances[i], cfg)
		if err != nil {
			return nil, fmt.Errorf("benchmark: seed %d: %w", instances[i].Seed, err)
		}
		lower[i] = lb
	}

	runs := make([][]benchRun, cfg.Instances)
	for i := range runs {
		runs[i] = make([]benchRun, len(algorithms))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range instances {
		for k, algo := range algorithms {
			g.Go(func() error {
				r, err := runOnce(gctx, instances[i], algo, cfg)
				if err != nil {
					if ctxErr := gctx.Err(); ctxErr != nil {
						return ctxErr
					}
					logger.Warn().Err(err).Str("algorithm", string(algo)).Int64("seed", instances[i].Seed).Msg("benchmark run failed")
					return nil
				}
				runs[i][k] = r
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("benchmark: %w", err)
	}

	results := make([]BenchmarkResult, len(algorithms))
	for k, algo := range algorithms {
		results[k].Algorithm = algo
	}
	for i, row := range runs {
		best := math.Inf(1)
		for _, r := range row {
			if r.ok {
				best = math.Min(best, r.obj)
			}
		}
		for k, r := range row {
			res := &results[k]
			if !r.ok {
				res.FailedSeeds = append(res.FailedSeeds, instances[i].Seed)
				continue
			}
			res.Successes++
			res.Objectives = append(res.Objectives, r.obj)
			res.TimesMs = append(res.TimesMs, r.timeMs)
			res.Resolved = append(res.Resolved, r.frac)
			gap := 0.0
			if best > 0 {
				gap = (r.obj - best) / best * 100
			}
			res.GapsPct = append(res.GapsPct, gap)
			res.Scores = append(res.Scores, qualityScore(r.cost, lower[i]))
		}
	}
	for k := range results {
		summarize(&results[k], cfg.Instances)
	}
	return results, nil
}

func runOnce(ctx context.Context, inst Instance, algo Algorithm, cfg BenchmarkConfig) (benchRun, error) {
	strategy, err := NewStrategy(algo)
	if err != nil {
		return benchRun{}, err
	}
	oracle, err := NewDistanceOracle(cfg.Provider, cfg.Cost, *zerolog.Ctx(ctx))
	if err != nil {
		return benchRun{}, err
	}

	start := time.Now()
	_, m, err := Solve(ctx, SolveRequest{
		Stations:   inst.Stations,
		Imbalances: inst.Imbalances,
		Vehicle:    inst.Vehicle,
		Options:    cfg.Options,
	}, oracle, strategy)
	if err != nil {
		return benchRun{}, err
	}
	return benchRun{
		ok:     true,
		obj:    m.Objective,
		cost:   m.TotalCost,
		timeMs: float64(time.Since(start).Microseconds()) / 1000,
		frac:   m.ImbalanceResolvedFraction,
	}, nil
}

// mstLowerBound is the weight of a minimum spanning tree over the depot and
// the stations, using the cheaper direction of every pair.
func mstLowerBound(ctx context.Context, inst Instance, cfg BenchmarkConfig) (float64, error) {
	oracle, err := NewDistanceOracle(cfg.Provider, cfg.Cost, zerolog.Nop())
	if err != nil {
		return 0, err
	}
	points := []domain.Point{inst.Vehicle.Depot}
	for _, st := range inst.Stations {
		if _, ok := inst.Imbalances[st.ID]; ok {
			points = append(points, st.Point())
		}
	}

	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := range points {
		g.AddNode(simple.Node(i))
	}
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			w := math.Inf(1)
			for _, pair := range [][2]domain.Point{{points[i], points[j]}, {points[j], points[i]}} {
				c, err := oracle.Cost(ctx, pair[0], pair[1])
				var ue *domain.UnreachableError
				switch {
				case errors.As(err, &ue):
				case err != nil:
					return 0, err
				default:
					w = math.Min(w, c)
				}
			}
			if !math.IsInf(w, 1) {
				g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(i), simple.Node(j), w))
			}
		}
	}

	dst := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	return path.Prim(dst, g), nil
}

// qualityScore maps cost onto [lower, 2*lower] as 1..0.
func qualityScore(cost, lower float64) float64 {
	upper := 2 * lower
	if upper <= lower {
		return 1
	}
	return 1 - (cost-lower)/(upper-lower)
}

func summarize(r *BenchmarkResult, total int) {
	if total > 0 {
		r.SuccessRate = float64(r.Successes) / float64(total) * 100
	}
	if r.Successes == 0 {
		return
	}
	r.MeanObjective = stat.Mean(r.Objectives, nil)
	if len(r.Objectives) > 1 {
		r.StdObjective = stat.StdDev(r.Objectives, nil)
	}
	r.MeanTimeMs = stat.Mean(r.TimesMs, nil)
	r.MeanGapPct = stat.Mean(r.GapsPct, nil)
	r.MeanScore = stat.Mean(r.Scores, nil)
	r.MeanResolved = stat.Mean(r.Resolved, nil)
}
