package dto

import "time"

type StationResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Lon            *float64  `json:"lon"`
	Lat            *float64  `json:"lat"`
	Capacity       int       `json:"capacity"`
	BikesAvailable int       `json:"bikes_available"`
	DocksAvailable *int      `json:"docks_available,omitempty"`
	Imbalance      int       `json:"imbalance"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ListStationsResponse struct {
	SnapshotID string            `json:"snapshot_id"`
	TakenAt    time.Time         `json:"taken_at"`
	TargetFill float64           `json:"target_fill_fraction"`
	Stations   []StationResponse `json:"stations"`
}
