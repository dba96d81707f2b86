package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/ports"
)

type snapshotFile struct {
	ID       string        `json:"id"`
	TakenAt  time.Time     `json:"taken_at"`
	Stations []stationFile `json:"stations"`
}

type stationFile struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Address        string    `json:"address,omitempty"`
	Lon            *float64  `json:"lon"`
	Lat            *float64  `json:"lat"`
	Capacity       int       `json:"capacity"`
	BikesAvailable int       `json:"bikes_available"`
	DocksAvailable *int      `json:"docks_available,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// DecodeSnapshot reads one snapshot document. Missing lon/lat yields a station
// without location; missing docks_available is recorded as unknown (-1).
func DecodeSnapshot(r io.Reader) (*domain.Snapshot, error) {
	var f snapshotFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	snap := &domain.Snapshot{ID: f.ID, TakenAt: f.TakenAt, Stations: make([]domain.Station, 0, len(f.Stations))}
	for _, s := range f.Stations {
		st := domain.Station{
			ID:             s.ID,
			Name:           s.Name,
			Address:        s.Address,
			Capacity:       s.Capacity,
			Bikes:          s.BikesAvailable,
			DocksAvailable: -1,
			UpdatedAt:      s.Timestamp,
		}
		if s.Lon != nil && s.Lat != nil {
			st.Location = &domain.Coordinates{Lon: *s.Lon, Lat: *s.Lat}
		}
		if s.DocksAvailable != nil {
			st.DocksAvailable = *s.DocksAvailable
		}
		snap.Stations = append(snap.Stations, st)
	}
	if snap.ID == "" && !snap.TakenAt.IsZero() {
		snap.ID = snap.TakenAt.UTC().Format(time.RFC3339)
	}
	return snap, nil
}

// EncodeSnapshot writes a snapshot in the format DecodeSnapshot reads.
func EncodeSnapshot(w io.Writer, snap *domain.Snapshot) error {
	f := snapshotFile{ID: snap.ID, TakenAt: snap.TakenAt, Stations: make([]stationFile, 0, len(snap.Stations))}
	for _, s := range snap.Stations {
		sf := stationFile{
			ID:             s.ID,
			Name:           s.Name,
			Address:        s.Address,
			Capacity:       s.Capacity,
			BikesAvailable: s.Bikes,
			Timestamp:      s.UpdatedAt,
		}
		if s.Location != nil {
			lon, lat := s.Location.Lon, s.Location.Lat
			sf.Lon, sf.Lat = &lon, &lat
		}
		if s.DocksAvailable >= 0 {
			d := s.DocksAvailable
			sf.DocksAvailable = &d
		}
		f.Stations = append(f.Stations, sf)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// JSONSnapshotRepository serves snapshots from a single JSON file or from every
// *.json file of a directory. Files are read on each call.
type JSONSnapshotRepository struct {
	Path string
}

func NewJSONSnapshotRepository(path string) *JSONSnapshotRepository {
	return &JSONSnapshotRepository{Path: path}
}

func (r *JSONSnapshotRepository) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	snaps, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("latest snapshot in %q: %w", r.Path, ports.ErrSnapshotNotFound)
	}
	return snaps[len(snaps)-1], nil
}

func (r *JSONSnapshotRepository) Snapshot(ctx context.Context, id string) (*domain.Snapshot, error) {
	snaps, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range snaps {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("snapshot %q: %w", id, ports.ErrSnapshotNotFound)
}

// load returns all snapshots ordered by TakenAt, then ID.
func (r *JSONSnapshotRepository) load(ctx context.Context) ([]*domain.Snapshot, error) {
	info, err := os.Stat(r.Path)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	files := []string{r.Path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(r.Path, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("load snapshots: list %q: %w", r.Path, err)
		}
	}

	out := make([]*domain.Snapshot, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snap, err := readSnapshotFile(path)
		if err != nil {
			return nil, err
		}
		if snap.ID == "" {
			snap.ID = filepath.Base(path)
		}
		out = append(out, snap)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TakenAt.Equal(out[j].TakenAt) {
			return out[i].TakenAt.Before(out[j].TakenAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func readSnapshotFile(path string) (*domain.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: open %q: %w", path, err)
	}
	defer f.Close()

	snap, err := DecodeSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %q: %w", path, err)
	}
	return snap, nil
}
