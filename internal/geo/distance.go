// Package geo holds great-circle helpers shared by the directions and
// proximity packages.
package geo

import (
	"math"

	"github.com/atharv3903/tripcorridor/internal/model"
)

const (
	EarthRadiusKM    = 6371.0
	EarthRadiusMiles = 3958.8

	MilesPerKilometer = 0.621371
	MilesPerDegreeLat = 69.0
)

func rad(deg float64) float64 { return deg * math.Pi / 180 }

// HaversineKM is the great-circle distance between two points in kilometers.
func HaversineKM(a, b model.LatLng) float64 {
	return haversine(a, b) * EarthRadiusKM
}

// HaversineMiles is the great-circle distance between two points in miles.
func HaversineMiles(a, b model.LatLng) float64 {
	return haversine(a, b) * EarthRadiusMiles
}

func haversine(a, b model.LatLng) float64 {
	dLat := rad(b.Lat - a.Lat)
	dLng := rad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// PointSegmentMiles approximates the distance from p to segment ab by
// projecting onto a local equirectangular plane centred on p. Good to well
// under 1% for segments of a few tens of miles.
func PointSegmentMiles(p, a, b model.LatLng) float64 {
	kx := MilesPerDegreeLat * math.Cos(rad(p.Lat))
	ky := MilesPerDegreeLat

	ax, ay := (a.Lng-p.Lng)*kx, (a.Lat-p.Lat)*ky
	bx, by := (b.Lng-p.Lng)*kx, (b.Lat-p.Lat)*ky
	dx, dy := bx-ax, by-ay

	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return HaversineMiles(p, a)
	}
	t := -(ax*dx + ay*dy) / lenSq
	switch {
	case t <= 0:
		return HaversineMiles(p, a)
	case t >= 1:
		return HaversineMiles(p, b)
	}
	cx, cy := ax+t*dx, ay+t*dy
	return math.Hypot(cx, cy)
}

// Interpolate returns n evenly spaced points from a to b inclusive.
func Interpolate(a, b model.LatLng, n int) []model.LatLng {
	if n < 2 {
		n = 2
	}
	out := make([]model.LatLng, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		out[i] = model.LatLng{
			Lat: a.Lat + t*(b.Lat-a.Lat),
			Lng: a.Lng + t*(b.Lng-a.Lng),
		}
	}
	return out
}

// MilesToDegrees converts a radius in miles into latitude and longitude
// spans at the given latitude.
func MilesToDegrees(miles, lat float64) (dLat, dLng float64) {
	dLat = miles / MilesPerDegreeLat
	c := math.Cos(rad(lat))
	if c < 0.01 {
		c = 0.01
	}
	dLng = miles / (MilesPerDegreeLat * c)
	return dLat, dLng
}

// Expand grows b by at least miles on every side. The longitude span is
// taken at the poleward edge of the grown box.
func Expand(b model.Bounds, miles float64) model.Bounds {
	lat := math.Max(math.Abs(b.NorthEast.Lat), math.Abs(b.SouthWest.Lat)) + miles/MilesPerDegreeLat
	dLat, dLng := MilesToDegrees(miles, lat)
	return model.Bounds{
		NorthEast: model.LatLng{Lat: math.Min(b.NorthEast.Lat+dLat, 90), Lng: math.Min(b.NorthEast.Lng+dLng, 180)},
		SouthWest: model.LatLng{Lat: math.Max(b.SouthWest.Lat-dLat, -90), Lng: math.Max(b.SouthWest.Lng-dLng, -180)},
	}
}
