package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebalance-route-service/internal/adapters/distance"
)

func TestGenerateInstance(t *testing.T) {
	inst := GenerateInstance(99, 15, 20)
	again := GenerateInstance(99, 15, 20)
	assert.Equal(t, inst, again)

	require.Len(t, inst.Stations, 15)
	sum := 0
	for _, st := range inst.Stations {
		require.NoError(t, st.Validate())
		assert.Zero(t, st.Capacity%2, "station %s", st.ID)
		sum += inst.Imbalances[st.ID]
		assert.Equal(t, st.Bikes-st.Capacity/2, inst.Imbalances[st.ID])
	}
	assert.Zero(t, sum)
	assert.Equal(t, defaultDepotID, inst.Vehicle.Depot.ID)
	assert.Equal(t, 20, inst.Vehicle.Capacity)

	got, err := ComputeImbalances(inst.Stations, TargetFillPolicy{Uniform: 0.5, MinimumThreshold: 1})
	require.NoError(t, err)
	assert.Equal(t, inst.Imbalances, got)

	assert.NotEqual(t, inst.Stations, GenerateInstance(100, 15, 20).Stations)
}

func TestRunBenchmark(t *testing.T) {
	cfg := BenchmarkConfig{
		Instances: 3,
		Stations:  6,
		Capacity:  60,
		BaseSeed:  1,
		Workers:   2,
		Provider:  distance.NewHaversineProvider(25),
		Cost:      DefaultCostConfig(),
		Options:   SolverOptions{TimeBudget: 5 * time.Second},
	}

	results, err := RunBenchmark(context.Background(), cfg, Algorithms())
	require.NoError(t, err)
	require.Len(t, results, len(Algorithms()))

	var exact BenchmarkResult
	for _, r := range results {
		assert.Equal(t, 3, r.Successes, r.Algorithm)
		assert.Empty(t, r.FailedSeeds)
		assert.Equal(t, 100.0, r.SuccessRate)
		require.Len(t, r.GapsPct, 3)
		for _, g := range r.GapsPct {
			assert.GreaterOrEqual(t, g, 0.0)
		}
		for _, s := range r.Scores {
			assert.LessOrEqual(t, s, 1.0)
		}
		if r.Algorithm == ExactSmall {
			exact = r
		}
	}
	assert.InDelta(t, 0, exact.MeanGapPct, 1e-6)
}

func TestRunBenchmarkRejectsBadConfig(t *testing.T) {
	_, err := RunBenchmark(context.Background(), BenchmarkConfig{Instances: 1, Stations: 3}, nil)
	assert.Error(t, err)

	cfg := BenchmarkConfig{Instances: 1, Stations: 3, Capacity: 10, Provider: distance.NewHaversineProvider(25)}
	_, err = RunBenchmark(context.Background(), cfg, []Algorithm{"tabu"})
	assert.Error(t, err)
}

func TestRunBenchmarkCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := BenchmarkConfig{Instances: 2, Stations: 4, Capacity: 10, Provider: distance.NewHaversineProvider(25)}
	_, err := RunBenchmark(ctx, cfg, []Algorithm{NearestNeighborGreedy})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQualityScore(t *testing.T) {
	assert.Equal(t, 1.0, qualityScore(100, 100))
	assert.Equal(t, 0.5, qualityScore(150, 100))
	assert.Equal(t, 0.0, qualityScore(200, 100))
	assert.Equal(t, 1.0, qualityScore(0, 0))
}
