package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/platform/metrics"
	"rebalance-route-service/internal/platform/obs"
	"rebalance-route-service/internal/ports"
)

const defaultDepotID = "depot"

type SolveRequest struct {
	Stations   []domain.Station
	Imbalances map[string]int
	Vehicle    domain.Vehicle
	Options    SolverOptions
}

// Solve plans one rebalancing route for the vehicle with the given strategy.
//
// Stations the depot cannot reach are left out and reported unresolved; other
// unreachable pairs are never used as direct hops. A zero capacity or a depot
// that reaches no station is an *domain.InfeasibleInstanceError. Partial
// service is not an error: leftovers are listed in the metrics.
func Solve(
	ctx context.Context,
	req SolveRequest,
	oracle *DistanceOracle,
	strategy Strategy,
) (_ *domain.Route, _ domain.Metrics, err error) {
	defer obs.Time(ctx, "solver.Solve")(&err)

	if oracle == nil || strategy == nil {
		return nil, domain.Metrics{}, errors.New("solve: oracle and strategy are required")
	}

	algo := strategy.Name()
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.SolveDuration.WithLabelValues(string(algo), status).Observe(time.Since(start).Seconds())
		metrics.RoutesPlanned.WithLabelValues(string(algo), status).Inc()
	}()

	depot := req.Vehicle.Depot
	if depot.ID == "" {
		depot.ID = defaultDepotID
	}

	p, excluded, err := buildProblem(ctx, req, depot, oracle)
	if err != nil {
		return nil, domain.Metrics{}, fmt.Errorf("solve %s: %w", algo, err)
	}
	p.startClock(start)

	if err := p.advance(PhaseConstructing); err != nil {
		return nil, domain.Metrics{}, err
	}
	order, err := strategy.Construct(ctx, p)
	if err != nil {
		return nil, domain.Metrics{}, fmt.Errorf("solve %s: construct: %w", algo, err)
	}
	if err := p.advance(PhaseFinalized); err != nil {
		return nil, domain.Metrics{}, err
	}

	route, err := p.route(p.normalize(order), depot, req.Vehicle.ID, string(algo))
	if err != nil {
		return nil, domain.Metrics{}, fmt.Errorf("solve %s: %w", algo, err)
	}

	m := Evaluate(route, req.Imbalances)
	m.Objective = m.TotalCost + p.Options.UnresolvedPenalty*float64(m.ImbalanceTotal-m.ImbalanceResolved)
	m.Iterations = p.Iterations
	m.BudgetExhausted = p.BudgetExhausted
	m.Phase = string(p.Phase())

	metrics.UnresolvedImbalance.WithLabelValues(string(algo)).Set(float64(m.ImbalanceTotal - m.ImbalanceResolved))

	l := zerolog.Ctx(ctx)
	if len(excluded) > 0 {
		l.Warn().Strs("stations", excluded).Msg("stations unreachable from depot left out")
	}
	l.Info().
		Str("algorithm", string(algo)).
		Str("route_id", route.ID).
		Int("stops", m.StopsCount).
		Float64("cost", m.TotalCost).
		Float64("resolved_fraction", m.ImbalanceResolvedFraction).
		Bool("budget_exhausted", m.BudgetExhausted).
		Msg("route planned")

	return route, m, nil
}

// buildProblem resolves the stations to route and their cost matrix. It
// returns the ids of stations dropped because the depot cannot reach them.
func buildProblem(ctx context.Context, req SolveRequest, depot domain.Point, oracle *DistanceOracle) (*Problem, []string, error) {
	byID := make(map[string]domain.Station, len(req.Stations))
	for _, st := range req.Stations {
		byID[st.ID] = st
	}

	ids := make([]string, 0, len(req.Imbalances))
	for id, imb := range req.Imbalances {
		if imb == 0 {
			continue
		}
		if _, ok := byID[id]; !ok {
			return nil, nil, &domain.DataValidationError{StationID: id, Reason: "imbalance for unknown station"}
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		return newMatrixProblem([]string{depot.ID}, []int{0}, [][]float64{{0}}, nil, req.Vehicle.Capacity, req.Options), nil, nil
	}
	if req.Vehicle.Capacity <= 0 {
		return nil, nil, &domain.InfeasibleInstanceError{Reason: fmt.Sprintf("vehicle capacity %d", req.Vehicle.Capacity)}
	}
	if depot.Location == nil {
		return nil, nil, &domain.InfeasibleInstanceError{Reason: "depot has no coordinates"}
	}

	points := make([]domain.Point, 0, len(ids)+1)
	points = append(points, depot)
	for _, id := range ids {
		points = append(points, byID[id].Point())
	}
	if err := oracle.Warm(ctx, points); err != nil {
		return nil, nil, fmt.Errorf("warm distances: %w", err)
	}

	reachable := []domain.Point{depot}
	var excluded []string
	for _, pt := range points[1:] {
		_, err := oracle.Cost(ctx, depot, pt)
		var ue *domain.UnreachableError
		switch {
		case errors.As(err, &ue):
			excluded = append(excluded, pt.ID)
		case err != nil:
			return nil, nil, err
		default:
			reachable = append(reachable, pt)
		}
	}
	if len(reachable) == 1 {
		return nil, excluded, &domain.InfeasibleInstanceError{Reason: "no station reachable from depot"}
	}

	n := len(reachable)
	nodeIDs := make([]string, n)
	demand := make([]int, n)
	cost := make([][]float64, n)
	dist := make([][]ports.DistanceResult, n)
	for i, a := range reachable {
		nodeIDs[i] = a.ID
		if i > 0 {
			demand[i] = req.Imbalances[a.ID]
		}
		cost[i] = make([]float64, n)
		dist[i] = make([]ports.DistanceResult, n)
		for j, b := range reachable {
			if i == j {
				continue
			}
			r, err := oracle.Distance(ctx, a, b)
			var ue *domain.UnreachableError
			switch {
			case errors.As(err, &ue):
				cost[i][j] = math.Inf(1)
			case err != nil:
				return nil, nil, err
			default:
				dist[i][j] = r
				cost[i][j] = oracle.CostConfig().Cost(r)
			}
		}
	}

	return newMatrixProblem(nodeIDs, demand, cost, dist, req.Vehicle.Capacity, req.Options), excluded, nil
}

// route turns canonical visits into a domain route, replaying every stop on a
// working copy of the vehicle.
func (p *Problem) route(vs []Visit, depot domain.Point, vehicleID, algo string) (*domain.Route, error) {
	r := &domain.Route{
		ID:              uuid.NewString(),
		Algorithm:       algo,
		Depot:           depot,
		VehicleCapacity: p.Capacity,
		Stops:           make([]domain.Stop, 0, len(vs)),
	}
	if len(vs) == 0 {
		return r, nil
	}

	truck := domain.NewVehicle(vehicleID, p.Capacity, depot)
	prev := 0
	for _, v := range vs {
		stop := domain.Stop{StationID: p.ids[v.Node], Action: domain.ActionPickup, Quantity: v.Quantity}
		if v.Quantity < 0 {
			stop.Action, stop.Quantity = domain.ActionDropoff, -v.Quantity
		}
		if err := truck.Apply(stop); err != nil {
			return nil, fmt.Errorf("build route: %w", err)
		}
		stop.LoadAfter = truck.Load
		r.Stops = append(r.Stops, stop)
		r.Legs = append(r.Legs, p.leg(prev, v.Node))
		prev = v.Node
	}
	r.Legs = append(r.Legs, p.leg(prev, 0))

	if err := r.CheckCapacity(); err != nil {
		return nil, fmt.Errorf("build route: %w", err)
	}
	return r, nil
}

func (p *Problem) leg(i, j int) domain.Leg {
	l := domain.Leg{From: p.ids[i], To: p.ids[j], Cost: p.cost[i][j]}
	if p.dist != nil {
		l.DistanceMeters = p.dist[i][j].DistanceMeters
		l.DurationSeconds = p.dist[i][j].DurationSeconds
	}
	return l
}
