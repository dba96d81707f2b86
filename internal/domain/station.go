package domain

import (
	"strings"
	"time"
)

// Station is the state of one bike-share station at snapshot time.
// DocksAvailable is -1 when the source did not report it.
type Station struct {
	ID             string
	Name           string
	Address        string
	Location       *Coordinates
	Capacity       int
	Bikes          int
	DocksAvailable int
	UpdatedAt      time.Time
}

// Point returns the routable location of the station.
func (s Station) Point() Point {
	return Point{ID: s.ID, Location: s.Location}
}

// Validate checks the station invariants (0 <= bikes <= capacity).
func (s Station) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return &DataValidationError{Field: "id", Reason: "station id must be non-empty"}
	}
	if s.Capacity < 0 {
		return &DataValidationError{StationID: s.ID, Field: "capacity", Reason: "must be >= 0"}
	}
	if s.Bikes < 0 {
		return &DataValidationError{StationID: s.ID, Field: "bikes", Reason: "must be >= 0"}
	}
	if s.Bikes > s.Capacity {
		return &DataValidationError{StationID: s.ID, Field: "bikes", Reason: "exceeds capacity"}
	}
	if s.DocksAvailable >= 0 && s.Bikes+s.DocksAvailable > s.Capacity {
		return &DataValidationError{StationID: s.ID, Field: "docks_available", Reason: "bikes + docks exceed capacity"}
	}
	if s.Location != nil && !s.Location.Valid() {
		return &DataValidationError{StationID: s.ID, Field: "location", Reason: "coordinates out of range"}
	}
	return nil
}

// Snapshot is an immutable per-cycle record of station states.
type Snapshot struct {
	ID       string
	TakenAt  time.Time
	Stations []Station
}

// Validate checks every station and rejects duplicate identifiers.
func (s *Snapshot) Validate() error {
	seen := make(map[string]struct{}, len(s.Stations))
	for _, st := range s.Stations {
		if err := st.Validate(); err != nil {
			return err
		}
		if _, ok := seen[st.ID]; ok {
			return &DataValidationError{StationID: st.ID, Reason: "duplicate station id"}
		}
		seen[st.ID] = struct{}{}
	}
	return nil
}

// Station returns the station with the given id.
func (s *Snapshot) Station(id string) (Station, bool) {
	for _, st := range s.Stations {
		if st.ID == id {
			return st, true
		}
	}
	return Station{}, false
}
