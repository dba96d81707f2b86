package ports

import (
	"context"

	"rebalance-route-service/internal/domain"
)

// Distance and travel duration between two points.
type DistanceResult struct {
	DistanceMeters  int
	DurationSeconds int
}

// Contract for retrieving travel distance and duration between points.
// Implementations return *domain.UnreachableError when no result exists for the pair.
type DistanceProvider interface {
	// Return travel distance and estimated duration from origin to destination.
	GetDistance(ctx context.Context, origin domain.Point, destination domain.Point) (DistanceResult, error)
}
