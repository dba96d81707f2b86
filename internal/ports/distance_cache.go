package ports

import "context"

// Persistent store for origin->destination distance results.
// Keys are opaque strings built by the caller (see distance.PairKey).
type DistanceCache interface {
	// Fetch cached results for one origin and many destinations. Misses are absent.
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]DistanceResult, error)
	// Store results for a single origin.
	PutMany(ctx context.Context, origin string, results map[string]DistanceResult) error
}
