package ports

import (
	"context"

	"rebalance-route-service/internal/domain"
)

// Optional extension of DistanceProvider that supports batched lookups.
type DistanceMatrixProvider interface {
	DistanceProvider
	// Return distances from one origin to many destinations, keyed by destination id.
	// Destinations without a result are absent from the map.
	GetDistances(ctx context.Context, origin domain.Point, destinations []domain.Point) (map[string]DistanceResult, error)
}
