package proximity

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/atharv3903/tripcorridor/internal/geo"
	"github.com/atharv3903/tripcorridor/internal/model"
)

var (
	sf = model.LatLng{Lat: 37.7749, Lng: -122.4194}
	la = model.LatLng{Lat: 34.0522, Lng: -118.2437}
)

func f(v float64) *float64 { return &v }

func at(id int64, p model.LatLng, rating *float64) model.Restaurant {
	return model.Restaurant{ID: id, Name: "r", Lat: f(p.Lat), Lng: f(p.Lng), Rating: rating}
}

func TestSample(t *testing.T) {
	poly := geo.Interpolate(sf, la, 1201)
	got := Sample(poly, 500)
	if len(got) > 500 {
		t.Fatalf("%d samples, want <= 500", len(got))
	}
	if got[0] != poly[0] || got[len(got)-1] != poly[len(poly)-1] {
		t.Fatal("endpoints must be kept")
	}

	short := geo.Interpolate(sf, la, 10)
	if got := Sample(short, 500); len(got) != 10 {
		t.Fatalf("short polylines are kept whole, got %d", len(got))
	}
}

func TestValidRadius(t *testing.T) {
	for _, r := range []float64{5, 10, 15, 25, 50} {
		if !ValidRadius(r) {
			t.Errorf("%v should be valid", r)
		}
	}
	for _, r := range []float64{0, 1, 37, 100, -5, 15.5} {
		if ValidRadius(r) {
			t.Errorf("%v should be rejected", r)
		}
	}
}

func TestFindNear_InvalidRadius(t *testing.T) {
	_, err := FindNear([]model.LatLng{sf, la}, nil, 37)
	if !errors.Is(err, ErrInvalidRadius) {
		t.Fatalf("err = %v", err)
	}
}

func TestFindNear_PointOnRouteAtEveryTier(t *testing.T) {
	route := geo.Interpolate(sf, la, 10)
	catalog := []model.Restaurant{at(1, route[3], nil)}

	for _, r := range Tiers {
		got, err := FindNear(route, catalog, r)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 {
			t.Fatalf("radius %v: got %d matches", r, len(got))
		}
		if got[0].DistanceMiles > 1e-6 || !got[0].WithinRadius {
			t.Fatalf("radius %v: unexpected match %+v", r, got[0])
		}
	}
}

func TestFindNear_FarEntryExcluded(t *testing.T) {
	route := geo.Interpolate(sf, la, 50)
	denver := model.LatLng{Lat: 39.7392, Lng: -104.9903}
	offRoute := model.LatLng{Lat: 36.2, Lng: -119.6} // tens of miles east of the line
	catalog := []model.Restaurant{at(1, denver, nil), at(2, offRoute, nil)}

	got, err := FindNear(route, catalog, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected nothing within 5 miles, got %+v", got)
	}
}

func TestFindNear_SkipsUnusableCoordinates(t *testing.T) {
	route := []model.LatLng{sf, la}
	catalog := []model.Restaurant{
		{ID: 1, Name: "no coords"},
		{ID: 2, Name: "bad lat", Lat: f(123), Lng: f(-120)},
		at(3, sf, nil),
	}
	got, err := FindNear(route, catalog, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Restaurant.ID != 3 {
		t.Fatalf("unexpected matches %+v", got)
	}
}

func TestFindNear_Ordering(t *testing.T) {
	route := []model.LatLng{sf, la}
	near := model.LatLng{Lat: sf.Lat + 0.05, Lng: sf.Lng}
	catalog := []model.Restaurant{
		at(5, near, nil),
		at(4, sf, f(3.0)),
		at(3, sf, f(4.5)),
		at(2, sf, f(4.5)),
		at(1, sf, nil),
	}
	got, err := FindNear(route, catalog, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{2, 3, 4, 1, 5}
	if len(got) != len(want) {
		t.Fatalf("got %d matches", len(got))
	}
	for i, id := range want {
		if got[i].Restaurant.ID != id {
			t.Fatalf("position %d: id %d, want %d", i, got[i].Restaurant.ID, id)
		}
	}
}

func TestFindNear_IndexMatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	route := geo.Interpolate(sf, la, 800)

	catalog := make([]model.Restaurant, 6000)
	for i := range catalog {
		p := model.LatLng{
			Lat: 33.5 + rng.Float64()*5,
			Lng: -123 + rng.Float64()*5.5,
		}
		var rating *float64
		if i%3 == 0 {
			rating = f(float64(rng.Intn(50)) / 10)
		}
		catalog[i] = at(int64(i+1), p, rating)
	}

	for _, r := range Tiers {
		linear, err := Matcher{IndexThreshold: math.MaxInt32}.FindNear(route, catalog, r)
		if err != nil {
			t.Fatal(err)
		}
		indexed, err := Matcher{IndexThreshold: 1}.FindNear(route, catalog, r)
		if err != nil {
			t.Fatal(err)
		}
		if len(linear) == 0 {
			t.Fatalf("radius %v: fixture should produce matches", r)
		}
		if len(linear) != len(indexed) {
			t.Fatalf("radius %v: linear %d vs indexed %d", r, len(linear), len(indexed))
		}
		for i := range linear {
			if linear[i].Restaurant.ID != indexed[i].Restaurant.ID {
				t.Fatalf("radius %v: mismatch at %d", r, i)
			}
		}
	}
}

func TestFindNear_SinglePointRoute(t *testing.T) {
	catalog := []model.Restaurant{at(1, sf, nil), at(2, la, nil)}
	for _, threshold := range []int{1, DefaultIndexThreshold} {
		got, err := Matcher{IndexThreshold: threshold}.FindNear([]model.LatLng{sf}, catalog, 5)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Restaurant.ID != 1 {
			t.Fatalf("threshold %d: unexpected %+v", threshold, got)
		}
	}
}

func TestFindNear_EmptyInputs(t *testing.T) {
	got, err := FindNear(nil, []model.Restaurant{at(1, sf, nil)}, 15)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("empty route: got %v, %v", got, err)
	}
}
