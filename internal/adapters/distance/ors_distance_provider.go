package distance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"rebalance-route-service/internal/domain"
	"rebalance-route-service/internal/platform/obs"
	"rebalance-route-service/internal/ports"
)

type ORSConfig struct {
	APIKey  string
	BaseURL string
	Profile string
	// RequestsPerSecond throttles outgoing calls; zero disables throttling.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// ORSDistanceProvider implements DistanceMatrixProvider using the OpenRouteService
// matrix API. Stations already carry coordinates, so no geocoding is involved.
//
// It coordinates:
//   - Request throttling through a token bucket
//   - External API calls with retry/backoff
//   - Mapping of null matrix cells to unreachable pairs
//
// Persistent caching is layered on top by CachedProvider.
// The provider is safe for concurrent use.
type ORSDistanceProvider struct {
	session *http.Client
	apiKey  string
	baseURL string
	profile string
	limiter *rate.Limiter
}

func NewORSDistanceProvider(cfg ORSConfig) (*ORSDistanceProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openrouteservice.org"
	}
	if cfg.Profile == "" {
		cfg.Profile = "driving-car"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	provider := &ORSDistanceProvider{
		session: &http.Client{Timeout: cfg.Timeout},
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		profile: cfg.Profile,
		limiter: limiter,
	}

	return provider, nil
}

// Delegate to the batched path to reuse matrix logic.
func (o *ORSDistanceProvider) GetDistance(
	ctx context.Context,
	origin domain.Point,
	destination domain.Point,
) (ports.DistanceResult, error) {
	if origin.Location == nil || destination.Location == nil {
		return ports.DistanceResult{}, &domain.UnreachableError{From: origin.ID, To: destination.ID, Reason: "missing coordinates"}
	}

	results, err := o.GetDistances(ctx, origin, []domain.Point{destination})
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf(
			"get distances %q -> %q: %w",
			origin.ID, destination.ID, err,
		)
	}

	result, ok := results[destination.ID]
	if !ok {
		return ports.DistanceResult{}, &domain.UnreachableError{From: origin.ID, To: destination.ID, Reason: "no route in matrix"}
	}

	return result, nil
}

// Compute distances from a single origin to many destinations. Destinations
// without coordinates or without a route are absent from the result.
func (o *ORSDistanceProvider) GetDistances(
	ctx context.Context,
	origin domain.Point,
	destinations []domain.Point,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "ors.GetDistances")(&err)

	if origin.Location == nil {
		return nil, &domain.UnreachableError{From: origin.ID, Reason: "origin has no coordinates"}
	}

	seen := make(map[string]struct{}, len(destinations))
	destList := make([]domain.Point, 0, len(destinations))
	out := make(map[string]ports.DistanceResult, len(destinations))
	for _, d := range destinations {
		if d.Location == nil {
			continue
		}
		if _, ok := seen[d.ID]; ok {
			continue
		}
		seen[d.ID] = struct{}{}
		if d.ID == origin.ID && d.SameLocation(origin) {
			out[d.ID] = ports.DistanceResult{}
			continue
		}
		destList = append(destList, d)
	}

	if len(destList) == 0 {
		return out, nil
	}

	fetched, err := o.fetchMatrixRow(ctx, *origin.Location, destList)
	if err != nil {
		return nil, fmt.Errorf("fetching matrix row: %w", err)
	}
	for k, v := range fetched {
		out[k] = v
	}

	return out, nil
}
