package directions

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/atharv3903/tripcorridor/internal/geo"
	"github.com/atharv3903/tripcorridor/internal/model"
	"github.com/atharv3903/tripcorridor/internal/resolver"
)

const (
	defaultLinePoints = 64
	defaultSpeedKPH   = 90.0
	defaultRoadFactor = 1.25
)

// Locator maps endpoint text to a coordinate.
type Locator func(text string) (model.LatLng, bool)

// CityLocator locates endpoints through the gazetteer.
func CityLocator(r *resolver.Resolver) Locator {
	return func(text string) (model.LatLng, bool) {
		m, ok := r.Resolve(text)
		if !ok || (m.City.Lat == 0 && m.City.Lng == 0) {
			return model.LatLng{}, false
		}
		return model.LatLng{Lat: m.City.Lat, Lng: m.City.Lng}, true
	}
}

// Line is an offline provider that draws a straight line between the two
// located endpoints. Distance is the great-circle distance scaled by
// RoadFactor and duration assumes a constant SpeedKPH.
type Line struct {
	Locate     Locator
	Points     int
	SpeedKPH   float64
	RoadFactor float64
}

func (l Line) Directions(ctx context.Context, origin, destination string) Result {
	if err := ctx.Err(); err != nil {
		return Failure(KindUnavailable, err)
	}
	if l.Locate == nil {
		return Failure(KindUnavailable, errors.New("line provider has no locator"))
	}
	a, ok := l.Locate(origin)
	if !ok {
		return Failure(KindNotFound, fmt.Errorf("unknown origin %q", origin))
	}
	b, ok := l.Locate(destination)
	if !ok {
		return Failure(KindNotFound, fmt.Errorf("unknown destination %q", destination))
	}

	n := l.Points
	if n <= 0 {
		n = defaultLinePoints
	}
	speed := l.SpeedKPH
	if speed <= 0 {
		speed = defaultSpeedKPH
	}
	factor := l.RoadFactor
	if factor <= 0 {
		factor = defaultRoadFactor
	}

	pts := geo.Interpolate(a, b, n)
	km := geo.HaversineKM(a, b) * factor
	return Success(Route{
		Polyline:        pts,
		DistanceMeters:  int(math.Round(km * 1000)),
		DurationSeconds: int(math.Round(km / speed * 3600)),
		Bounds:          model.BoundsOf(pts),
	})
}
