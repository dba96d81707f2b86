package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/platform/obs"
	"rebalance-route-service/internal/ports"
)

// SQLite-backed implementation of the SnapshotRepository port over the
// scraper database. A snapshot id is a scrape time; the snapshot holds the
// latest history row of every station at or before that time.
type SqliteSnapshotRepository struct{ DB *sql.DB }

func NewSqliteSnapshotRepository(db *sql.DB) *SqliteSnapshotRepository {
	return &SqliteSnapshotRepository{DB: db}
}

func (s *SqliteSnapshotRepository) LatestSnapshot(ctx context.Context) (_ *domain.Snapshot, err error) {
	defer obs.Time(ctx, "snapshot.sqlite.Latest")(&err)

	if s.DB == nil {
		return nil, errors.New("sqlite snapshot repository: DB is nil")
	}

	var latest sql.NullString
	err = s.DB.QueryRowContext(ctx, `SELECT CAST(MAX(timestamp) AS TEXT) FROM station_history;`).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: query history: %w", err)
	}
	if !latest.Valid {
		return nil, fmt.Errorf("latest snapshot: %w", ports.ErrSnapshotNotFound)
	}

	at, err := parseSqliteTime(latest.String)
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return s.snapshotAt(ctx, at)
}

// Snapshot accepts an RFC3339 time or a scraper timestamp as id.
func (s *SqliteSnapshotRepository) Snapshot(ctx context.Context, id string) (_ *domain.Snapshot, err error) {
	defer obs.Time(ctx, "snapshot.sqlite.Get")(&err)

	if s.DB == nil {
		return nil, errors.New("sqlite snapshot repository: DB is nil")
	}

	at, err := parseSqliteTime(id)
	if err != nil {
		return nil, fmt.Errorf("snapshot %q: %w", id, ports.ErrSnapshotNotFound)
	}
	return s.snapshotAt(ctx, at)
}

func (s *SqliteSnapshotRepository) snapshotAt(ctx context.Context, at time.Time) (*domain.Snapshot, error) {
	query := `
	SELECT
		s.station_number,
		s.name,
		s.address,
		s.capacity,
		s.geo_lat,
		s.geo_long,
		h.available_bikes,
		CAST(h.timestamp AS TEXT)
	FROM stations s
	JOIN station_history h ON h.id = (
		SELECT h2.id
		FROM station_history h2
		WHERE h2.station_number = s.station_number
			AND h2.timestamp <= ?
		ORDER BY h2.timestamp DESC, h2.id DESC
		LIMIT 1
	)
	ORDER BY s.station_number;
	`
	rows, err := s.DB.QueryContext(ctx, query, formatSqliteTime(at))
	if err != nil {
		return nil, fmt.Errorf("snapshot at %s: query stations: %w", at.Format(time.RFC3339), err)
	}
	defer rows.Close()

	snap := &domain.Snapshot{ID: at.UTC().Format(time.RFC3339Nano), TakenAt: at}
	for rows.Next() {
		var (
			number   int
			st       domain.Station
			lat, lon float64
			stamp    string
		)
		if err := rows.Scan(&number, &st.Name, &st.Address, &st.Capacity, &lat, &lon, &st.Bikes, &stamp); err != nil {
			return nil, fmt.Errorf("snapshot at %s: scan row: %w", at.Format(time.RFC3339), err)
		}
		st.ID = strconv.Itoa(number)
		st.Location = &domain.Coordinates{Lon: lon, Lat: lat}
		st.DocksAvailable = -1
		if st.UpdatedAt, err = parseSqliteTime(stamp); err != nil {
			return nil, fmt.Errorf("snapshot at %s: station %d: %w", at.Format(time.RFC3339), number, err)
		}
		snap.Stations = append(snap.Stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot at %s: row iteration: %w", at.Format(time.RFC3339), err)
	}

	if len(snap.Stations) == 0 {
		return nil, fmt.Errorf("snapshot at %s: %w", at.Format(time.RFC3339), ports.ErrSnapshotNotFound)
	}
	return snap, nil
}
