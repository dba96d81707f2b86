package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/ports"
)

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Sources      []int       `json:"sources"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// newMatrixRequest puts the origin at index 0 followed by the destinations.
func newMatrixRequest(origin domain.Coordinates, dests []domain.Point) matrixRequest {
	req := matrixRequest{
		Locations:    make([][]float64, 0, len(dests)+1),
		Sources:      []int{0},
		Destinations: make([]int, len(dests)),
		Metrics:      []string{"distance", "duration"},
	}
	req.Locations = append(req.Locations, origin.CoordsToList())
	for i, d := range dests {
		req.Locations = append(req.Locations, d.Location.CoordsToList())
		req.Destinations[i] = i + 1
	}
	return req
}

// sourceRow returns the single source row, checked against the expected width.
func (m matrixResponse) sourceRow(width int) (dist, dur []*float64, err error) {
	if len(m.Distances) != 1 || len(m.Durations) != 1 {
		return nil, nil, fmt.Errorf("expected 1 source row, got %d distance and %d duration rows",
			len(m.Distances), len(m.Durations))
	}
	dist, dur = m.Distances[0], m.Durations[0]
	if len(dist) != width || len(dur) != width {
		return nil, nil, fmt.Errorf("row width %d/%d, want %d", len(dist), len(dur), width)
	}
	return dist, dur, nil
}

// fetchMatrixRow asks the matrix endpoint for one origin and many
// destinations. Null cells mean no route; those destinations are omitted.
func (o *ORSDistanceProvider) fetchMatrixRow(
	ctx context.Context,
	origin domain.Coordinates,
	dests []domain.Point,
) (map[string]ports.DistanceResult, error) {
	out := make(map[string]ports.DistanceResult, len(dests))
	if len(dests) == 0 {
		return out, nil
	}

	payload, err := json.Marshal(newMatrixRequest(origin, dests))
	if err != nil {
		return nil, fmt.Errorf("marshal matrix request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)
	resp, err := o.call(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, fmt.Errorf("matrix request: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode matrix response: %w", err)
	}
	dist, dur, err := mr.sourceRow(len(dests))
	if err != nil {
		return nil, fmt.Errorf("matrix response: %w", err)
	}

	for i, d := range dests {
		if dist[i] == nil || dur[i] == nil {
			continue
		}
		out[d.ID] = ports.DistanceResult{
			DistanceMeters:  int(math.Round(*dist[i])),
			DurationSeconds: int(math.Round(*dur[i])),
		}
	}
	return out, nil
}
