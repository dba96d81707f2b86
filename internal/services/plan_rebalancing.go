package services

import (
	"context"
	"errors"
	"fmt"

	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/platform/obs"
	"rebalance-route-service/internal/ports"
)

type PlanRequest struct {
	// SnapshotID selects a stored snapshot; empty means the latest one.
	SnapshotID      string
	Algorithm       Algorithm
	VehicleID       string
	VehicleCapacity int
	Policy          TargetFillPolicy
	// The depot is either a station's location or explicit coordinates.
	DepotStationID string
	DepotLocation  *domain.Coordinates
	Options        SolverOptions
}

type PlanResult struct {
	SnapshotID string
	Imbalances map[string]int
	Route      *domain.Route
	Metrics    domain.Metrics
}

// PlanRebalancing loads a snapshot, derives the imbalances and solves one
// route with the requested algorithm.
func PlanRebalancing(
	ctx context.Context,
	req PlanRequest,
	repo ports.SnapshotRepository,
	oracle *DistanceOracle,
) (_ *PlanResult, err error) {
	defer obs.Time(ctx, "plan.Rebalancing")(&err)

	snap, err := loadSnapshot(ctx, repo, req.SnapshotID)
	if err != nil {
		return nil, fmt.Errorf("plan rebalancing: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("plan rebalancing: snapshot %s: %w", snap.ID, err)
	}

	depot, err := resolveDepot(snap, req.DepotStationID, req.DepotLocation)
	if err != nil {
		return nil, fmt.Errorf("plan rebalancing: %w", err)
	}

	imbalances, err := ComputeImbalances(snap.Stations, req.Policy)
	if err != nil {
		return nil, fmt.Errorf("plan rebalancing: compute imbalances: %w", err)
	}

	algo := req.Algorithm
	if algo == "" {
		algo = LocalSearchImprovement
	}
	strategy, err := NewStrategy(algo)
	if err != nil {
		return nil, fmt.Errorf("plan rebalancing: %w", err)
	}

	vehicle := domain.NewVehicle(req.VehicleID, req.VehicleCapacity, depot)
	route, m, err := Solve(ctx, SolveRequest{
		Stations:   snap.Stations,
		Imbalances: imbalances,
		Vehicle:    *vehicle,
		Options:    req.Options,
	}, oracle, strategy)
	if err != nil {
		return nil, fmt.Errorf("plan rebalancing: %w", err)
	}

	return &PlanResult{SnapshotID: snap.ID, Imbalances: imbalances, Route: route, Metrics: m}, nil
}

func loadSnapshot(ctx context.Context, repo ports.SnapshotRepository, id string) (*domain.Snapshot, error) {
	if repo == nil {
		return nil, errors.New("snapshot repository is nil")
	}
	if id == "" {
		return repo.LatestSnapshot(ctx)
	}
	return repo.Snapshot(ctx, id)
}

func resolveDepot(snap *domain.Snapshot, stationID string, loc *domain.Coordinates) (domain.Point, error) {
	if stationID != "" {
		st, ok := snap.Station(stationID)
		if !ok {
			return domain.Point{}, &domain.DataValidationError{StationID: stationID, Field: "depot_station_id", Reason: "not in snapshot"}
		}
		if st.Location == nil {
			return domain.Point{}, &domain.DataValidationError{StationID: stationID, Field: "depot_station_id", Reason: "station has no coordinates"}
		}
		return domain.Point{ID: defaultDepotID, Location: st.Location}, nil
	}
	if loc != nil {
		if !loc.Valid() {
			return domain.Point{}, &domain.DataValidationError{Field: "depot", Reason: "coordinates out of range"}
		}
		c := *loc
		return domain.Point{ID: defaultDepotID, Location: &c}, nil
	}
	return domain.Point{}, &domain.DataValidationError{Field: "depot", Reason: "a depot station or coordinates are required"}
}
