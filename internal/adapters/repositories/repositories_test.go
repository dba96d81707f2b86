package repositories

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/platform/db"
	"rebalance-route-service/internal/ports"
)

const snapshotJSON = `{
  "id": "nantes-1",
  "taken_at": "2024-05-01T08:00:00Z",
  "stations": [
    {"id": "1", "name": "Commerce", "lon": -1.56, "lat": 47.2, "capacity": 20, "bikes_available": 15, "docks_available": 5, "timestamp": "2024-05-01T07:59:00Z"},
    {"id": "2", "name": "Bouffay", "lon": -1.55, "lat": 47.2, "capacity": 10, "bikes_available": 1, "timestamp": "2024-05-01T07:58:00Z"},
    {"id": "3", "name": "Ghost", "capacity": 10, "bikes_available": 5, "timestamp": "2024-05-01T07:58:00Z"}
  ]
}`

func TestDecodeSnapshot(t *testing.T) {
	snap, err := DecodeSnapshot(bytes.NewBufferString(snapshotJSON))
	require.NoError(t, err)

	assert.Equal(t, "nantes-1", snap.ID)
	require.Len(t, snap.Stations, 3)
	assert.Equal(t, 15, snap.Stations[0].Bikes)
	assert.Equal(t, 5, snap.Stations[0].DocksAvailable)
	assert.Equal(t, -1, snap.Stations[1].DocksAvailable)
	assert.Equal(t, &domain.Coordinates{Lon: -1.55, Lat: 47.2}, snap.Stations[1].Location)
	assert.Nil(t, snap.Stations[2].Location)
}

func TestEncodeSnapshotIsReadable(t *testing.T) {
	snap, err := DecodeSnapshot(bytes.NewBufferString(snapshotJSON))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeSnapshot(&buf, snap))
	again, err := DecodeSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, snap.Stations, again.Stations)
}

func TestJSONSnapshotRepository_Directory(t *testing.T) {
	dir := t.TempDir()
	older := `{"id":"a","taken_at":"2024-05-01T07:00:00Z","stations":[]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(snapshotJSON), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(older), 0o600))

	repo := NewJSONSnapshotRepository(dir)
	latest, err := repo.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nantes-1", latest.ID)

	byID, err := repo.Snapshot(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, byID.Stations)

	_, err = repo.Snapshot(context.Background(), "zzz")
	assert.True(t, errors.Is(err, ports.ErrSnapshotNotFound))
}

func newScraperDB(t *testing.T) *SqliteSnapshotRepository {
	t.Helper()
	conn, err := db.OpenSqlite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, InitSchema(context.Background(), conn))
	return NewSqliteSnapshotRepository(conn)
}

func TestSqliteSnapshotRepository_LatestPerStation(t *testing.T) {
	ctx := context.Background()
	repo := newScraperDB(t)

	first := &domain.Snapshot{
		TakenAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		Stations: []domain.Station{
			{ID: "1", Name: "Commerce", Location: &domain.Coordinates{Lon: -1.56, Lat: 47.2}, Capacity: 20, Bikes: 15},
			{ID: "2", Name: "Bouffay", Location: &domain.Coordinates{Lon: -1.55, Lat: 47.2}, Capacity: 10, Bikes: 1},
		},
	}
	second := &domain.Snapshot{
		TakenAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Stations: []domain.Station{
			{ID: "1", Name: "Commerce", Location: &domain.Coordinates{Lon: -1.56, Lat: 47.2}, Capacity: 20, Bikes: 9},
		},
	}
	require.NoError(t, SeedSnapshot(ctx, repo.DB, first))
	require.NoError(t, SeedSnapshot(ctx, repo.DB, second))

	latest, err := repo.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, latest.Stations, 2)
	assert.Equal(t, 9, latest.Stations[0].Bikes)
	assert.Equal(t, 1, latest.Stations[1].Bikes)
	assert.Equal(t, -1, latest.Stations[0].DocksAvailable)
	assert.True(t, latest.TakenAt.Equal(second.TakenAt))

	past, err := repo.Snapshot(ctx, "2024-05-01T08:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 15, past.Stations[0].Bikes)

	_, err = repo.Snapshot(ctx, "2024-04-01T00:00:00Z")
	assert.True(t, errors.Is(err, ports.ErrSnapshotNotFound))
	_, err = repo.Snapshot(ctx, "not-a-time")
	assert.True(t, errors.Is(err, ports.ErrSnapshotNotFound))
}

func TestSqliteSnapshotRepository_Empty(t *testing.T) {
	repo := newScraperDB(t)
	_, err := repo.LatestSnapshot(context.Background())
	assert.True(t, errors.Is(err, ports.ErrSnapshotNotFound))
}

func TestSeedSnapshot_RejectsNonNumericID(t *testing.T) {
	repo := newScraperDB(t)
	err := SeedSnapshot(context.Background(), repo.DB, &domain.Snapshot{
		Stations: []domain.Station{{ID: "abc", Location: &domain.Coordinates{}}},
	})
	var dv *domain.DataValidationError
	require.True(t, errors.As(err, &dv))
	assert.Equal(t, "id", dv.Field)
}
