package ports

import (
	"context"
	"errors"

	"rebalance-route-service/internal/domain"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// Port: a read-only boundary for station snapshots written by the scraper.
type SnapshotRepository interface {
	// Return the most recent snapshot.
	LatestSnapshot(ctx context.Context) (*domain.Snapshot, error)
	// Return the snapshot with the given id, or ErrSnapshotNotFound.
	Snapshot(ctx context.Context, id string) (*domain.Snapshot, error)
}
