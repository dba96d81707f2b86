package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"rebalance-route-service/internal/api/dto"
	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/ports"
	"rebalance-route-service/internal/services"
)

// PlanDefaults fill in whatever a plan request leaves out.
type PlanDefaults struct {
	Algorithm       services.Algorithm
	VehicleCapacity int
	Policy          services.TargetFillPolicy
	DepotStationID  string
	DepotLocation   *domain.Coordinates
	Options         services.SolverOptions
	Cost            services.CostConfig
}

// PlanHandler solves each request with its own DistanceOracle over the shared
// Provider.
type PlanHandler struct {
	Repo     ports.SnapshotRepository
	Provider ports.DistanceProvider
	Defaults PlanDefaults
}

// Plan computes one rebalancing route for the requested snapshot.
// It validates the request body, fills defaults and maps service errors.
func (h *PlanHandler) Plan(w http.ResponseWriter, r *http.Request) {
	if !allowOnly(w, r, http.MethodPost) {
		return
	}

	var req dto.PlanRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	svcReq, msg := h.toServiceRequest(req)
	if msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}

	oracle, err := services.NewDistanceOracle(h.Provider, h.Defaults.Cost, *zerolog.Ctx(r.Context()))
	if err != nil {
		writeServiceError(w, r, "plans.Plan", err)
		return
	}

	res, err := services.PlanRebalancing(r.Context(), svcReq, h.Repo, oracle)
	if err != nil {
		writeServiceError(w, r, "plans.Plan", err)
		return
	}

	writeJSON(w, r, http.StatusOK, toPlanResponse(res))
}

func (h *PlanHandler) toServiceRequest(req dto.PlanRequest) (services.PlanRequest, string) {
	out := services.PlanRequest{
		SnapshotID:      strings.TrimSpace(req.SnapshotID),
		Algorithm:       h.Defaults.Algorithm,
		VehicleID:       strings.TrimSpace(req.VehicleID),
		VehicleCapacity: h.Defaults.VehicleCapacity,
		Policy:          h.Defaults.Policy,
		DepotStationID:  h.Defaults.DepotStationID,
		DepotLocation:   h.Defaults.DepotLocation,
		Options:         h.Defaults.Options,
	}

	if a := strings.TrimSpace(req.Algorithm); a != "" {
		algo, err := services.ParseAlgorithm(a)
		if err != nil {
			return out, err.Error()
		}
		out.Algorithm = algo
	}

	if req.VehicleCapacity != 0 {
		out.VehicleCapacity = req.VehicleCapacity
	}
	if out.VehicleCapacity < 1 || out.VehicleCapacity > 1000 {
		return out, "vehicle_capacity must be between 1 and 1000"
	}

	if req.TargetFill != nil {
		out.Policy.Uniform = *req.TargetFill
	}

	switch {
	case req.DepotStationID != "" && (req.DepotLon != nil || req.DepotLat != nil):
		return out, "give either depot_station_id or depot_lon/depot_lat"
	case req.DepotStationID != "":
		out.DepotStationID = strings.TrimSpace(req.DepotStationID)
		out.DepotLocation = nil
	case req.DepotLon != nil && req.DepotLat != nil:
		out.DepotStationID = ""
		out.DepotLocation = &domain.Coordinates{Lon: *req.DepotLon, Lat: *req.DepotLat}
	case req.DepotLon != nil || req.DepotLat != nil:
		return out, "depot_lon and depot_lat go together"
	}

	if out.VehicleID == "" {
		out.VehicleID = "truck-1"
	}
	return out, ""
}

func toPlanResponse(res *services.PlanResult) dto.PlanResponse {
	route, m := res.Route, res.Metrics

	out := dto.PlanResponse{
		RouteID:         route.ID,
		SnapshotID:      res.SnapshotID,
		Algorithm:       route.Algorithm,
		VehicleCapacity: route.VehicleCapacity,
		Stops:           make([]dto.StopResponse, 0, len(route.Stops)),
		Legs:            make([]dto.LegResponse, 0, len(route.Legs)),
		Imbalances:      res.Imbalances,
		Metrics: dto.MetricsResponse{
			TotalCost:                 m.TotalCost,
			TotalDistanceMeters:       m.TotalDistanceMeters,
			TotalDurationSeconds:      m.TotalDurationSeconds,
			StationsVisited:           m.StationsVisited,
			PickedUp:                  m.PickedUp,
			DroppedOff:                m.DroppedOff,
			MaxLoad:                   m.MaxLoad,
			CapacityUtilization:       m.CapacityUtilization,
			ImbalanceTotal:            m.ImbalanceTotal,
			ImbalanceResolved:         m.ImbalanceResolved,
			ImbalanceResolvedFraction: m.ImbalanceResolvedFraction,
			Unresolved:                m.Unresolved,
			UnresolvedStations:        m.UnresolvedStations,
			Objective:                 m.Objective,
			Iterations:                m.Iterations,
			BudgetExhausted:           m.BudgetExhausted,
		},
	}
	if route.Depot.Location != nil {
		out.Depot = route.Depot.Location.CoordsToList()
	}
	for _, s := range route.Stops {
		out.Stops = append(out.Stops, dto.StopResponse{
			StationID: s.StationID,
			Action:    string(s.Action),
			Quantity:  s.Quantity,
			LoadAfter: s.LoadAfter,
		})
	}
	for _, l := range route.Legs {
		out.Legs = append(out.Legs, dto.LegResponse{
			From:            l.From,
			To:              l.To,
			DistanceMeters:  l.DistanceMeters,
			DurationSeconds: l.DurationSeconds,
			Cost:            l.Cost,
		})
	}
	return out
}
