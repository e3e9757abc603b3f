// Package proximity selects catalog entries that lie within a corridor
// around a route.
package proximity

import (
	"errors"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/atharv3903/tripcorridor/internal/geo"
	"github.com/atharv3903/tripcorridor/internal/model"
)

const (
	DefaultRadiusMiles    = 15.0
	DefaultMaxSamples     = 500
	DefaultIndexThreshold = 5000

	rtreeMinChildren = 25
	rtreeMaxChildren = 50
	pointTolerance   = 1e-9
	indexSlack       = 1.01
)

// Tiers are the only accepted corridor radii, in miles.
var Tiers = []float64{5, 10, 15, 25, 50}

var ErrInvalidRadius = errors.New("radius must be one of 5, 10, 15, 25 or 50 miles")

func ValidRadius(miles float64) bool {
	for _, t := range Tiers {
		if miles == t {
			return true
		}
	}
	return false
}

// Sample keeps every Kth vertex so that at most limit points remain. The
// first and last vertices are always kept.
func Sample(poly []model.LatLng, limit int) []model.LatLng {
	if limit < 2 {
		limit = 2
	}
	n := len(poly)
	if n <= limit {
		out := make([]model.LatLng, n)
		copy(out, poly)
		return out
	}
	k := (n - 1 + limit - 2) / (limit - 1)
	out := make([]model.LatLng, 0, limit)
	for i := 0; i < n-1; i += k {
		out = append(out, poly[i])
	}
	return append(out, poly[n-1])
}

// Matcher is stateless between calls; the zero value uses the defaults.
type Matcher struct {
	MaxSamples     int
	IndexThreshold int
}

func (m Matcher) maxSamples() int {
	if m.MaxSamples > 0 {
		return m.MaxSamples
	}
	return DefaultMaxSamples
}

func (m Matcher) indexThreshold() int {
	if m.IndexThreshold > 0 {
		return m.IndexThreshold
	}
	return DefaultIndexThreshold
}

type located struct {
	idx int
	loc model.LatLng
}

func (l *located) Bounds() rtreego.Rect {
	return rtreego.Point{l.loc.Lat, l.loc.Lng}.ToRect(pointTolerance)
}

// FindNear returns the entries whose distance to the route is at most
// radiusMiles, nearest first, then by rating descending, then by id.
// Entries without usable coordinates are skipped.
func (m Matcher) FindNear(route []model.LatLng, catalog []model.Restaurant, radiusMiles float64) ([]model.ProximityMatch, error) {
	if !ValidRadius(radiusMiles) {
		return nil, ErrInvalidRadius
	}
	out := make([]model.ProximityMatch, 0)
	if len(route) == 0 || len(catalog) == 0 {
		return out, nil
	}

	samples := Sample(route, m.maxSamples())

	points := make([]*located, 0, len(catalog))
	for i, r := range catalog {
		if loc, ok := r.Location(); ok {
			points = append(points, &located{idx: i, loc: loc})
		}
	}

	candidates := points
	if len(points) >= m.indexThreshold() {
		candidates = prefilter(points, samples, radiusMiles)
	}

	for _, p := range candidates {
		d := distanceToPath(p.loc, samples)
		if d <= radiusMiles {
			out = append(out, model.ProximityMatch{
				Restaurant:    catalog[p.idx],
				DistanceMiles: d,
				WithinRadius:  true,
			})
		}
	}
	sortMatches(out)
	return out, nil
}

// FindNear runs a default Matcher.
func FindNear(route []model.LatLng, catalog []model.Restaurant, radiusMiles float64) ([]model.ProximityMatch, error) {
	return Matcher{}.FindNear(route, catalog, radiusMiles)
}

// prefilter indexes the points in an R-tree and keeps those falling inside
// the bounding box of any sampled segment grown by the radius.
func prefilter(points []*located, samples []model.LatLng, radiusMiles float64) []*located {
	objs := make([]rtreego.Spatial, len(points))
	for i, p := range points {
		objs[i] = p
	}
	tree := rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren, objs...)

	seen := make(map[int]bool)
	keep := make([]*located, 0)
	query := func(a, b model.LatLng) {
		box := geo.Expand(model.BoundsOf([]model.LatLng{a, b}), radiusMiles*indexSlack)
		rect, err := rtreego.NewRectFromPoints(
			rtreego.Point{box.SouthWest.Lat, box.SouthWest.Lng},
			rtreego.Point{box.NorthEast.Lat, box.NorthEast.Lng},
		)
		if err != nil {
			return
		}
		for _, s := range tree.SearchIntersect(rect) {
			l := s.(*located)
			if !seen[l.idx] {
				seen[l.idx] = true
				keep = append(keep, l)
			}
		}
	}

	if len(samples) == 1 {
		query(samples[0], samples[0])
	}
	for i := 1; i < len(samples); i++ {
		query(samples[i-1], samples[i])
	}
	return keep
}

func distanceToPath(p model.LatLng, samples []model.LatLng) float64 {
	if len(samples) == 1 {
		return geo.HaversineMiles(p, samples[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(samples); i++ {
		if d := geo.PointSegmentMiles(p, samples[i-1], samples[i]); d < best {
			best = d
			if best == 0 {
				break
			}
		}
	}
	return best
}

func rating(r model.Restaurant) float64 {
	if r.Rating == nil {
		return math.Inf(-1)
	}
	return *r.Rating
}

func sortMatches(ms []model.ProximityMatch) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.DistanceMiles != b.DistanceMiles {
			return a.DistanceMiles < b.DistanceMiles
		}
		if ra, rb := rating(a.Restaurant), rating(b.Restaurant); ra != rb {
			return ra > rb
		}
		return a.Restaurant.ID < b.Restaurant.ID
	})
}
