package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebalance-route-service/internal/adapters/distance"
	"rebalance-route-service/internal/domain"
)

func TestSolveLineScenario(t *testing.T) {
	req := SolveRequest{
		Stations:   lineStations(),
		Imbalances: lineImbalances(),
		Vehicle:    domain.Vehicle{ID: "truck-1", Capacity: 6, Depot: depotAt(-1.56, 47.2)},
	}

	want := []domain.Stop{
		{StationID: "A", Action: domain.ActionPickup, Quantity: 5, LoadAfter: 5},
		{StationID: "B", Action: domain.ActionDropoff, Quantity: 3, LoadAfter: 2},
		{StationID: "C", Action: domain.ActionPickup, Quantity: 2, LoadAfter: 4},
		{StationID: "D", Action: domain.ActionDropoff, Quantity: 4, LoadAfter: 0},
	}

	for _, algo := range []Algorithm{NearestNeighborGreedy, LocalSearchImprovement, ExactSmall} {
		t.Run(string(algo), func(t *testing.T) {
			route, m, err := solveWith(t, algo, req, distance.NewHaversineProvider(25))
			require.NoError(t, err)

			assert.Equal(t, want, route.Stops)
			assert.Equal(t, string(algo), route.Algorithm)
			assert.Equal(t, 1.0, m.ImbalanceResolvedFraction)
			assert.Empty(t, m.UnresolvedStations)
			assert.Equal(t, string(PhaseFinalized), m.Phase)
			// depot shares A's coordinates
			assert.Zero(t, route.Legs[0].Cost)
			checkRoute(t, route, req.Imbalances)
		})
	}
}

func TestSolveAllAlgorithmsRespectCapacity(t *testing.T) {
	inst := GenerateInstance(42, 9, 7)
	req := SolveRequest{
		Stations:   inst.Stations,
		Imbalances: inst.Imbalances,
		Vehicle:    inst.Vehicle,
		Options:    SolverOptions{TimeBudget: time.Second},
	}

	for _, algo := range Algorithms() {
		t.Run(string(algo), func(t *testing.T) {
			route, m, err := solveWith(t, algo, req, distance.NewHaversineProvider(25))
			require.NoError(t, err)
			checkRoute(t, route, inst.Imbalances)

			assert.Equal(t, 0, m.FinalLoad)
			assert.LessOrEqual(t, m.MaxLoad, 7)
			assert.Equal(t, m.PickedUp, m.DroppedOff)
			assert.InDelta(t, m.TotalCost+DefaultSolverOptions().UnresolvedPenalty*float64(m.ImbalanceTotal-m.ImbalanceResolved), m.Objective, 1e-6)
		})
	}
}

func TestSolveDeterministic(t *testing.T) {
	inst := GenerateInstance(7, 10, 12)
	req := SolveRequest{Stations: inst.Stations, Imbalances: inst.Imbalances, Vehicle: inst.Vehicle}

	for _, algo := range []Algorithm{NearestNeighborGreedy, SavingsHeuristic, LocalSearchImprovement} {
		first, _, err := solveWith(t, algo, req, distance.NewHaversineProvider(25))
		require.NoError(t, err)
		second, _, err := solveWith(t, algo, req, distance.NewHaversineProvider(25))
		require.NoError(t, err)

		if !assert.Equal(t, first.Stops, second.Stops) {
			t.Fatalf("%s produced different routes for identical input", algo)
		}
	}
}

func TestSolveNoImbalancesGivesEmptyRoute(t *testing.T) {
	req := SolveRequest{
		Stations:   lineStations(),
		Imbalances: map[string]int{},
		Vehicle:    domain.Vehicle{ID: "t", Capacity: 0, Depot: depotAt(-1.56, 47.2)},
	}
	route, m, err := solveWith(t, NearestNeighborGreedy, req, distance.NewHaversineProvider(25))
	require.NoError(t, err)

	assert.Empty(t, route.Stops)
	assert.Empty(t, route.Legs)
	assert.Zero(t, m.TotalCost)
	assert.Equal(t, 1.0, m.ImbalanceResolvedFraction)
}

func TestSolveZeroCapacityIsInfeasible(t *testing.T) {
	req := SolveRequest{
		Stations:   lineStations(),
		Imbalances: lineImbalances(),
		Vehicle:    domain.Vehicle{ID: "t", Capacity: 0, Depot: depotAt(-1.56, 47.2)},
	}
	_, _, err := solveWith(t, LocalSearchImprovement, req, distance.NewHaversineProvider(25))

	var ie *domain.InfeasibleInstanceError
	require.True(t, errors.As(err, &ie), "got %v", err)
}

func TestSolveUnknownStation(t *testing.T) {
	req := SolveRequest{
		Stations:   lineStations(),
		Imbalances: map[string]int{"Z": 3},
		Vehicle:    domain.Vehicle{ID: "t", Capacity: 6, Depot: depotAt(-1.56, 47.2)},
	}
	_, _, err := solveWith(t, NearestNeighborGreedy, req, distance.NewHaversineProvider(25))

	var ve *domain.DataValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "Z", ve.StationID)
}

func TestSolveExcludesUnreachableStations(t *testing.T) {
	stations := lineStations()
	stations[3].Location = nil // D has no coordinates

	provider := distance.NewHaversineProvider(25)
	provider.Block(defaultDepotID, "C")

	req := SolveRequest{
		Stations:   stations,
		Imbalances: lineImbalances(),
		Vehicle:    domain.Vehicle{ID: "t", Capacity: 6, Depot: depotAt(-1.56, 47.2)},
	}
	for _, algo := range Algorithms() {
		t.Run(string(algo), func(t *testing.T) {
			route, m, err := solveWith(t, algo, req, provider)
			require.NoError(t, err)
			checkRoute(t, route, req.Imbalances)

			for _, s := range route.Stops {
				assert.NotContains(t, []string{"C", "D"}, s.StationID)
			}
			assert.Contains(t, m.UnresolvedStations, "C")
			assert.Contains(t, m.UnresolvedStations, "D")
			assert.NotContains(t, m.UnresolvedStations, "B")
			assert.Equal(t, 2, m.Unresolved["A"])
			assert.Equal(t, -4, m.Unresolved["D"])
		})
	}
}

func TestSolveNothingReachable(t *testing.T) {
	provider := distance.NewHaversineProvider(25)
	for _, id := range []string{"A", "B", "C", "D"} {
		provider.Block(defaultDepotID, id)
	}
	req := SolveRequest{
		Stations:   lineStations(),
		Imbalances: lineImbalances(),
		Vehicle:    domain.Vehicle{ID: "t", Capacity: 6, Depot: depotAt(-1.50, 47.2)},
	}
	_, _, err := solveWith(t, NearestNeighborGreedy, req, provider)

	var ie *domain.InfeasibleInstanceError
	require.True(t, errors.As(err, &ie), "got %v", err)
}

func TestSolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := SolveRequest{
		Stations:   lineStations(),
		Imbalances: lineImbalances(),
		Vehicle:    domain.Vehicle{ID: "t", Capacity: 6, Depot: depotAt(-1.56, 47.2)},
	}
	_, _, err := Solve(ctx, req, newTestOracle(t, distance.NewHaversineProvider(25)), NearestNeighbor{})
	require.ErrorIs(t, err, context.Canceled)
}
