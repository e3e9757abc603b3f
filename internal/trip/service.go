// Package trip plans a trip between two free-text locations and returns the
// restaurants along the way.
package trip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/atharv3903/tripcorridor/internal/cache"
	"github.com/atharv3903/tripcorridor/internal/directions"
	"github.com/atharv3903/tripcorridor/internal/geo"
	"github.com/atharv3903/tripcorridor/internal/geocode"
	"github.com/atharv3903/tripcorridor/internal/model"
	"github.com/atharv3903/tripcorridor/internal/proximity"
	"github.com/atharv3903/tripcorridor/internal/ratelimit"
	"github.com/atharv3903/tripcorridor/internal/resolver"
)

const directionsKey = "directions"

// DefaultDirectionsThrottle keeps outbound directions calls near one per
// second per process.
var DefaultDirectionsThrottle = ratelimit.Options{Limit: 1, Window: time.Second}

// DefaultThrottleTimeout bounds how long a miss queues for the directions
// throttle before it is reported as upstream unavailable.
const DefaultThrottleTimeout = 15 * time.Second

// Deps are the collaborators a Service is built from. Geocoder and
// GeocodeCatalog are only needed for GeocodeMissing.
type Deps struct {
	Resolver *resolver.Resolver
	Provider directions.Provider
	Routes   *cache.RouteCache
	Catalog  Catalog
	Limiter  *ratelimit.Limiter

	Geocoder       geocode.Geocoder
	GeocodeCatalog geocode.Catalog
	GeocodePacer   *ratelimit.Pacer
}

type Service struct {
	resolver *resolver.Resolver
	provider directions.Provider
	routes   *cache.RouteCache
	catalog  Catalog
	limiter  *ratelimit.Limiter
	throttle ratelimit.Options
	queueFor time.Duration
	matcher  proximity.Matcher
	validate *validator.Validate

	geocoder     geocode.Geocoder
	geoCatalog   geocode.Catalog
	geocodePacer *ratelimit.Pacer
	geocodeOpts  []geocode.TaskOption
}

type Option func(*Service)

// WithThrottle overrides the internal directions throttle.
func WithThrottle(o ratelimit.Options) Option {
	return func(s *Service) { s.throttle = o }
}

// WithThrottleTimeout caps the time spent waiting for the directions
// throttle. Zero or negative keeps the default.
func WithThrottleTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.queueFor = d
		}
	}
}

func WithMatcher(m proximity.Matcher) Option {
	return func(s *Service) { s.matcher = m }
}

func WithGeocodeOptions(opts ...geocode.TaskOption) Option {
	return func(s *Service) { s.geocodeOpts = append(s.geocodeOpts, opts...) }
}

func New(d Deps, opts ...Option) *Service {
	if d.Resolver == nil {
		d.Resolver = resolver.New(resolver.DefaultCities())
	}
	if d.Routes == nil {
		d.Routes = cache.New(cache.NewMemoryStore())
	}
	if d.Limiter == nil {
		d.Limiter = ratelimit.New()
	}
	if d.Catalog == nil {
		d.Catalog = NewMemoryCatalog()
	}
	s := &Service{
		resolver:     d.Resolver,
		provider:     d.Provider,
		routes:       d.Routes,
		catalog:      d.Catalog,
		limiter:      d.Limiter,
		throttle:     DefaultDirectionsThrottle,
		queueFor:     DefaultThrottleTimeout,
		validate:     newValidator(),
		geocoder:     d.Geocoder,
		geoCatalog:   d.GeocodeCatalog,
		geocodePacer: d.GeocodePacer,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Routes() *cache.RouteCache { return s.routes }

// Suggest ranks gazetteer cities for autocomplete.
func (s *Service) Suggest(q string, limit int) []resolver.Match {
	return s.resolver.Match(q, limit)
}

// endpoint maps user text to the text sent to the directions provider. A
// resolved city becomes its canonical label; otherwise the sanitized input
// is used as-is.
func (s *Service) endpoint(text string) string {
	if m, ok := s.resolver.Resolve(text); ok {
		return m.City.Label()
	}
	return resolver.Sanitize(text)
}

// PlanTrip resolves both endpoints, gets the route from the cache or the
// provider, and matches catalog entries within the requested corridor.
func (s *Service) PlanTrip(ctx context.Context, req model.TripRequest) (*model.TripResponse, error) {
	req = normalize(req)
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	origin, destination := s.endpoint(req.Origin), s.endpoint(req.Destination)
	ve := &ValidationError{}
	if origin == "" {
		ve.add("origin", "must name a location")
	}
	if destination == "" {
		ve.add("destination", "must name a location")
	}
	if len(ve.Fields) > 0 {
		return nil, ve
	}

	route, cached, err := s.routes.Resolve(ctx, origin, destination, s.fetch(origin, destination))
	if err != nil {
		return nil, classify(err)
	}

	area := geo.Expand(route.Bounds, req.RadiusMiles)
	candidates, err := s.catalog.RestaurantsWithin(ctx, area)
	if err != nil {
		return nil, fmt.Errorf("%w: load restaurants: %w", ErrPersistence, err)
	}

	matches, err := s.matcher.FindNear(route.Polyline, candidates, req.RadiusMiles)
	if errors.Is(err, proximity.ErrInvalidRadius) {
		return nil, &ValidationError{Fields: []FieldError{{Field: "radiusMiles", Message: "must be one of " + tierList() + " miles"}}}
	}
	if err != nil {
		return nil, err
	}

	return &model.TripResponse{
		Origin:      route.Origin,
		Destination: route.Destination,
		Route: model.RouteView{
			Polyline:        route.Polyline,
			DistanceMeters:  route.DistanceMeters,
			DurationSeconds: route.DurationSeconds,
			Bounds:          route.Bounds,
		},
		Restaurants: matches,
		Cached:      cached,
	}, nil
}

// fetch throttles the provider call. Waiting on the limiter queues the
// request instead of failing it.
func (s *Service) fetch(origin, destination string) cache.FetchFunc {
	return func(ctx context.Context) directions.Result {
		if s.provider == nil {
			return directions.Failure(directions.KindUnavailable, errors.New("no directions provider configured"))
		}
		waitCtx, cancel := context.WithTimeout(ctx, s.queueFor)
		err := s.limiter.Wait(waitCtx, directionsKey, s.throttle)
		cancel()
		if err != nil {
			return directions.Failure(directions.KindUnavailable, fmt.Errorf("waiting for directions throttle: %w", err))
		}
		return s.provider.Directions(ctx, origin, destination)
	}
}

func classify(err error) error {
	switch {
	case errors.Is(err, cache.ErrStore):
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	case errors.Is(err, directions.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrRouteNotFound, err)
	case errors.Is(err, directions.ErrUnavailable), errors.Is(err, directions.ErrRateLimited):
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return err
}

// GeocodeMissing runs one sequential, paced pass over restaurants without
// coordinates.
func (s *Service) GeocodeMissing(ctx context.Context) (geocode.Report, error) {
	if s.geocoder == nil || s.geoCatalog == nil {
		return geocode.Report{}, ErrGeocodingDisabled
	}
	task := geocode.NewTask(s.geocoder, s.geoCatalog, s.geocodePacer, s.geocodeOpts...)
	rep, err := task.Run(ctx)
	if err != nil {
		return rep, fmt.Errorf("geocode pass: %w", err)
	}
	return rep, nil
}
