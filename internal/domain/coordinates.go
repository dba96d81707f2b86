package domain

import "math"

// Immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64
	Lat float64
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Valid reports whether the coordinates are finite and inside WGS84 bounds.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) || math.IsInf(c.Lon, 0) || math.IsInf(c.Lat, 0) {
		return false
	}
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// Point is a routable location: a station or the depot.
// A nil Location means the coordinate is unknown.
type Point struct {
	ID       string
	Location *Coordinates
}

func NewPoint(id string, lon, lat float64) Point {
	return Point{ID: id, Location: &Coordinates{Lon: lon, Lat: lat}}
}

// SameLocation reports whether both points resolve to identical known coordinates.
func (p Point) SameLocation(o Point) bool {
	if p.Location == nil || o.Location == nil {
		return false
	}
	return *p.Location == *o.Location
}
