package model

import (
	"strings"
	"time"
)

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is the north-east / south-west box enclosing a route.
type Bounds struct {
	NorthEast LatLng `json:"northeast"`
	SouthWest LatLng `json:"southwest"`
}

// BoundsOf returns the smallest box containing every point. The zero Bounds is
// returned for an empty slice.
func BoundsOf(pts []LatLng) Bounds {
	if len(pts) == 0 {
		return Bounds{}
	}
	b := Bounds{NorthEast: pts[0], SouthWest: pts[0]}
	for _, p := range pts[1:] {
		if p.Lat > b.NorthEast.Lat {
			b.NorthEast.Lat = p.Lat
		}
		if p.Lng > b.NorthEast.Lng {
			b.NorthEast.Lng = p.Lng
		}
		if p.Lat < b.SouthWest.Lat {
			b.SouthWest.Lat = p.Lat
		}
		if p.Lng < b.SouthWest.Lng {
			b.SouthWest.Lng = p.Lng
		}
	}
	return b
}

// City is an immutable gazetteer entry.
type City struct {
	Name       string  `json:"name"`
	Region     string  `json:"region"`
	Population int     `json:"population"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

// Label is the canonical "Name, REGION" form used for directions lookups.
func (c City) Label() string {
	if c.Region == "" {
		return c.Name
	}
	return c.Name + ", " + c.Region
}

// LocationQuery is parsed user input.
type LocationQuery struct {
	Primary string
	Region  string
}

// EndpointID normalizes endpoint text into the identifier used as one half of
// the route cache key.
func EndpointID(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// CachedRoute is a persisted directions lookup for an ordered endpoint pair.
type CachedRoute struct {
	ID              string    `json:"id"`
	OriginID        string    `json:"originId"`
	DestinationID   string    `json:"destinationId"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	Polyline        []LatLng  `json:"polyline"`
	DistanceMeters  int       `json:"distanceMeters"`
	DurationSeconds int       `json:"durationSeconds"`
	Bounds          Bounds    `json:"bounds"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Name is the human-readable identifier matched by cache invalidation.
func (r *CachedRoute) Name() string {
	return r.Origin + " → " + r.Destination
}

// Restaurant is a catalog entry. Lat/Lng are nil until geocoded.
type Restaurant struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Address string   `json:"address,omitempty"`
	City    string   `json:"city,omitempty"`
	State   string   `json:"state,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Rating  *float64 `json:"rating,omitempty"`
}

// Location reports the entry's coordinates and whether they are usable.
func (r Restaurant) Location() (LatLng, bool) {
	if r.Lat == nil || r.Lng == nil {
		return LatLng{}, false
	}
	lat, lng := *r.Lat, *r.Lng
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return LatLng{}, false
	}
	return LatLng{Lat: lat, Lng: lng}, true
}

// GeocodeQuery is the free-text address sent to a geocoder.
func (r Restaurant) GeocodeQuery() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.Address, r.City, r.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return r.Name
	}
	return strings.Join(parts, ", ")
}

// ProximityMatch is a catalog entry found near a route.
type ProximityMatch struct {
	Restaurant    Restaurant `json:"restaurant"`
	DistanceMiles float64    `json:"distanceMiles"`
	WithinRadius  bool       `json:"withinRadius"`
}

type TripRequest struct {
	Origin      string  `json:"origin" validate:"required,max=200"`
	Destination string  `json:"destination" validate:"required,max=200"`
	RadiusMiles float64 `json:"radiusMiles" validate:"radiustier"`
}

type RouteView struct {
	Polyline        []LatLng `json:"polyline"`
	DistanceMeters  int      `json:"distanceMeters"`
	DurationSeconds int      `json:"durationSeconds"`
	Bounds          Bounds   `json:"bounds"`
}

type TripResponse struct {
	Origin      string           `json:"origin"`
	Destination string           `json:"destination"`
	Route       RouteView        `json:"route"`
	Restaurants []ProximityMatch `json:"restaurants"`
	Cached      bool             `json:"cached"`
}
