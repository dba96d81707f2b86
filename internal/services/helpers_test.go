package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/ports"
)

// lineStations places A, B, C and D on one parallel, about 760 m apart.
func lineStations() []domain.Station {
	mk := func(id string, lon float64, bikes int) domain.Station {
		return domain.Station{
			ID:             id,
			Name:           "Station " + id,
			Location:       &domain.Coordinates{Lon: lon, Lat: 47.2},
			Capacity:       20,
			Bikes:          bikes,
			DocksAvailable: 20 - bikes,
		}
	}
	return []domain.Station{
		mk("A", -1.56, 15),
		mk("B", -1.55, 7),
		mk("C", -1.54, 12),
		mk("D", -1.53, 6),
	}
}

func lineImbalances() map[string]int {
	return map[string]int{"A": 5, "B": -3, "C": 2, "D": -4}
}

func depotAt(lon, lat float64) domain.Point {
	return domain.NewPoint(defaultDepotID, lon, lat)
}

func newTestOracle(t *testing.T, provider ports.DistanceProvider) *DistanceOracle {
	t.Helper()
	o, err := NewDistanceOracle(provider, DefaultCostConfig(), zerolog.Nop())
	require.NoError(t, err)
	return o
}

func solveWith(t *testing.T, algo Algorithm, req SolveRequest, provider ports.DistanceProvider) (*domain.Route, domain.Metrics, error) {
	t.Helper()
	strategy, err := NewStrategy(algo)
	require.NoError(t, err)
	return Solve(context.Background(), req, newTestOracle(t, provider), strategy)
}

// checkRoute asserts the load and conservation rules every route must obey.
func checkRoute(t *testing.T, r *domain.Route, imbalances map[string]int) {
	t.Helper()
	require.NoError(t, r.CheckCapacity())

	if len(r.Stops) == 0 {
		require.Empty(t, r.Legs)
		return
	}
	require.Len(t, r.Legs, len(r.Stops)+1)
	require.Equal(t, r.Depot.ID, r.Legs[0].From)
	require.Equal(t, r.Depot.ID, r.Legs[len(r.Legs)-1].To)

	picked, dropped := 0, 0
	perStation := map[string]int{}
	for _, s := range r.Stops {
		imb, ok := imbalances[s.StationID]
		require.True(t, ok, "stop at station %s without imbalance", s.StationID)
		if s.Action == domain.ActionPickup {
			require.Positive(t, imb, "pickup at deficit station %s", s.StationID)
			picked += s.Quantity
		} else {
			require.Negative(t, imb, "dropoff at surplus station %s", s.StationID)
			dropped += s.Quantity
		}
		perStation[s.StationID] += s.Quantity
	}
	require.Equal(t, picked, dropped)
	for id, q := range perStation {
		require.LessOrEqual(t, q, abs(imbalances[id]), "station %s over-served", id)
	}
}

type memSnapshots struct {
	snaps []*domain.Snapshot
}

func (m *memSnapshots) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	if len(m.snaps) == 0 {
		return nil, ports.ErrSnapshotNotFound
	}
	return m.snaps[len(m.snaps)-1], nil
}

func (m *memSnapshots) Snapshot(ctx context.Context, id string) (*domain.Snapshot, error) {
	for _, s := range m.snaps {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, ports.ErrSnapshotNotFound
}
