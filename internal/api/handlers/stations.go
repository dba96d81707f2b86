package handlers

import (
	"net/http"
	"strconv"

	"rebalance-route-service/internal/api/dto"
	"rebalance-route-service/internal/ports"
	"rebalance-route-service/internal/services"
)

// StationHandler exposes the stations of a snapshot with their imbalance.
type StationHandler struct {
	Repo   ports.SnapshotRepository
	Policy services.TargetFillPolicy
}

// List serves GET /stations?snapshot_id=&target_fill_fraction=.
func (h *StationHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowOnly(w, r, http.MethodGet) {
		return
	}

	policy := h.Policy
	if raw := r.URL.Query().Get("target_fill_fraction"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "target_fill_fraction must be a number")
			return
		}
		policy.Uniform = f
	}
	if err := policy.Validate(); err != nil {
		writeServiceError(w, r, "stations.List", err)
		return
	}

	s, err := latestOr(r, h.Repo, r.URL.Query().Get("snapshot_id"))
	if err != nil {
		writeServiceError(w, r, "stations.List", err)
		return
	}

	res := dto.ListStationsResponse{
		SnapshotID: s.ID,
		TakenAt:    s.TakenAt,
		TargetFill: policy.Uniform,
		Stations:   make([]dto.StationResponse, 0, len(s.Stations)),
	}
	for _, st := range s.Stations {
		sr := dto.StationResponse{
			ID:             st.ID,
			Name:           st.Name,
			Capacity:       st.Capacity,
			BikesAvailable: st.Bikes,
			Imbalance:      services.Imbalance(st, policy.FillFor(st.ID)),
			UpdatedAt:      st.UpdatedAt,
		}
		if st.Location != nil {
			lon, lat := st.Location.Lon, st.Location.Lat
			sr.Lon, sr.Lat = &lon, &lat
		}
		if st.DocksAvailable >= 0 {
			d := st.DocksAvailable
			sr.DocksAvailable = &d
		}
		res.Stations = append(res.Stations, sr)
	}

	writeJSON(w, r, http.StatusOK, res)
}
