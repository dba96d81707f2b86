package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rebalance-route-service/internal/domain"
)

// Initialize the scraper's SQLite schema. Existing scraper databases already
// have these tables; the statements are no-ops there.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createStationsQuery := `
	CREATE TABLE IF NOT EXISTS stations (
		station_number INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		capacity INTEGER NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		geo_lat REAL NOT NULL,
		geo_long REAL NOT NULL
	);
	`

	createHistoryQuery := `
	CREATE TABLE IF NOT EXISTS station_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		station_number INTEGER NOT NULL,
		available_bikes INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY (station_number) REFERENCES stations(station_number)
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_station_history_station_time
	ON station_history(station_number, timestamp);
	`

	statements := []string{
		createStationsQuery,
		createHistoryQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Populate the database with one snapshot read from a JSON file.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) error {
	snap, err := readSnapshotFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed snapshot: %w", err)
	}
	return SeedSnapshot(ctx, db, snap)
}

// SeedSnapshot upserts the stations of snap and appends one history row per
// station stamped with the snapshot time. Station ids must be numeric and every
// station needs coordinates, as the scraper schema requires both.
func SeedSnapshot(ctx context.Context, db *sql.DB, snap *domain.Snapshot) error {
	if db == nil {
		return errors.New("seed snapshot: DB is nil")
	}

	numbers := make([]int, len(snap.Stations))
	for i, s := range snap.Stations {
		n, err := strconv.Atoi(strings.TrimSpace(s.ID))
		if err != nil {
			return &domain.DataValidationError{StationID: s.ID, Field: "id", Reason: "scraper schema needs a numeric station id"}
		}
		if s.Location == nil {
			return &domain.DataValidationError{StationID: s.ID, Field: "location", Reason: "scraper schema needs coordinates"}
		}
		numbers[i] = n
	}

	takenAt := snap.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed snapshot: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stationStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO stations (station_number, name, capacity, address, geo_lat, geo_long)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(station_number) DO UPDATE SET
		name = excluded.name,
		capacity = excluded.capacity,
		address = excluded.address,
		geo_lat = excluded.geo_lat,
		geo_long = excluded.geo_long;
	`)
	if err != nil {
		return fmt.Errorf("seed snapshot: prepare stations: %w", err)
	}
	defer stationStmt.Close()

	historyStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO station_history (station_number, available_bikes, timestamp)
	VALUES (?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("seed snapshot: prepare history: %w", err)
	}
	defer historyStmt.Close()

	stamp := formatSqliteTime(takenAt)
	for i, s := range snap.Stations {
		if _, err := stationStmt.ExecContext(ctx, numbers[i], s.Name, s.Capacity, s.Address, s.Location.Lat, s.Location.Lon); err != nil {
			return fmt.Errorf("seed snapshot: upsert station %s: %w", s.ID, err)
		}
		if _, err := historyStmt.ExecContext(ctx, numbers[i], s.Bikes, stamp); err != nil {
			return fmt.Errorf("seed snapshot: insert history %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed snapshot: commit tx: %w", err)
	}

	return nil
}

// The scraper writes "YYYY-MM-DD HH:MM:SS[.ffffff]"; a fixed fraction keeps
// textual comparison in SQLite consistent with time order.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

func formatSqliteTime(t time.Time) string { return t.UTC().Format(sqliteTimeLayout) }

func parseSqliteTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{sqliteTimeLayout, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
