package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"rebalance-route-service/internal/platform/obs"
	"rebalance-route-service/internal/ports"
)

const sqliteDistanceCacheSchema = `
CREATE TABLE IF NOT EXISTS distance_cache (
	origin           TEXT    NOT NULL,
	destination      TEXT    NOT NULL,
	distance_meters  INTEGER NOT NULL,
	duration_seconds INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL,
	PRIMARY KEY (origin, destination)
);`

// SQLite backed cache for origin->destination distance results.
// Keys are built by the caller (see distance.PointKey).
type SqliteDistanceCache struct {
	DB     *sql.DB
	MaxAge time.Duration

	now func() time.Time
}

func NewSqliteDistanceCache(db *sql.DB, maxAge time.Duration) *SqliteDistanceCache {
	return &SqliteDistanceCache{DB: db, MaxAge: maxAge, now: time.Now}
}

func (s *SqliteDistanceCache) EnsureSchema(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("distance cache: db is nil")
	}
	if _, err := s.DB.ExecContext(ctx, sqliteDistanceCacheSchema); err != nil {
		return fmt.Errorf("distance cache: create schema: %w", err)
	}
	return nil
}

// Fetch cached distances for one origin and multiple destinations.
func (s *SqliteDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cache.sqlite.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("distance cache: db is nil")
	}
	if origin == "" {
		return nil, errors.New("get distance cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	var minUpdated int64
	if s.MaxAge > 0 {
		minUpdated = s.now().Add(-s.MaxAge).Unix()
	}

	args := make([]any, 0, 2+len(uniq))
	args = append(args, origin, minUpdated)
	for _, d := range uniq {
		args = append(args, d)
	}

	// SQLite cannot bind a slice to IN (...); only the placeholders are interpolated.
	q := fmt.Sprintf(`
	SELECT destination, distance_meters, duration_seconds
	FROM distance_cache
	WHERE origin = ?
		AND updated_at >= ?
		AND destination IN (%s);
	`, strings.TrimSuffix(strings.Repeat("?,", len(uniq)), ","))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get distance cache: query distance_cache table: %w", err)
	}
	defer rows.Close()

	return scanDistanceRows(rows, len(uniq))
}

// Store many cached distance results for a single origin.
func (s *SqliteDistanceCache) PutMany(ctx context.Context, origin string, results map[string]ports.DistanceResult) (err error) {
	defer obs.Time(ctx, "distance.cache.sqlite.PutMany")(&err)

	if s.DB == nil {
		return errors.New("distance cache: db is nil")
	}
	if origin == "" {
		return errors.New("insert distance cache: origin must not be empty")
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert distance cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO distance_cache (origin, destination, distance_meters, duration_seconds, updated_at)
	VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert distance cache: db prepare: %w", err)
	}
	defer stmt.Close()

	stamp := s.now().Unix()
	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return errors.New("insert distance cache: empty destination key")
		}
		if _, err := stmt.ExecContext(ctx, origin, dest, r.DistanceMeters, r.DurationSeconds, stamp); err != nil {
			return fmt.Errorf("insert distance cache dest=%q: %w", dest, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert distance cache commit: %w", err)
	}

	return nil
}
