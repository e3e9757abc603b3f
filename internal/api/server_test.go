package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/atharv3903/tripcorridor/internal/cache"
	"github.com/atharv3903/tripcorridor/internal/directions"
	"github.com/atharv3903/tripcorridor/internal/model"
	"github.com/atharv3903/tripcorridor/internal/ratelimit"
	"github.com/atharv3903/tripcorridor/internal/resolver"
	"github.com/atharv3903/tripcorridor/internal/trip"
)

func f(v float64) *float64 { return &v }

func newTestServer(t *testing.T, provider directions.Provider, rl ratelimit.Options) *httptest.Server {
	t.Helper()
	res := resolver.New(resolver.DefaultCities())
	if provider == nil {
		provider = directions.Line{Locate: directions.CityLocator(res), Points: 100}
	}
	svc := trip.New(trip.Deps{
		Resolver: res,
		Provider: provider,
		Routes:   cache.New(cache.NewMemoryStore()),
		Catalog: trip.NewMemoryCatalog(
			model.Restaurant{ID: 1, Name: "Start Cafe", Lat: f(37.7749), Lng: f(-122.4194), Rating: f(4.1)},
			model.Restaurant{ID: 2, Name: "End Diner", Lat: f(34.0522), Lng: f(-118.2437)},
		),
	}, trip.WithThrottle(ratelimit.Options{Limit: 100, Window: time.Second}))

	srv := New(svc, Options{RateLimit: rl, AdminToken: "s3cret"})
	ts := httptest.NewServer(srv.Mux)
	t.Cleanup(ts.Close)
	return ts
}

var generous = ratelimit.Options{Limit: 100, Window: time.Minute}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil, generous)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRoute_MissThenHit(t *testing.T) {
	ts := newTestServer(t, nil, generous)
	u := ts.URL + "/route?" + url.Values{
		"origin":      {"San Francisco, CA"},
		"destination": {"Los Angeles, CA"},
		"radius":      {"10"},
	}.Encode()

	var first, second model.TripResponse
	for i, out := range []*model.TripResponse{&first, &second} {
		resp, err := http.Get(u)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("call %d: status = %d", i+1, resp.StatusCode)
		}
		decode(t, resp, out)
	}

	if first.Cached || !second.Cached {
		t.Fatalf("cached flags = %v, %v", first.Cached, second.Cached)
	}
	if len(first.Restaurants) != 2 || first.Restaurants[0].Restaurant.ID != 1 {
		t.Fatalf("restaurants = %+v", first.Restaurants)
	}
	if len(first.Route.Polyline) != len(second.Route.Polyline) || first.Route.DistanceMeters != second.Route.DistanceMeters {
		t.Fatal("routes differ between calls")
	}
}

func TestTrip_JSON(t *testing.T) {
	ts := newTestServer(t, nil, generous)
	body := `{"origin":"SF","destination":"LA","radiusMiles":5}`
	resp, err := http.Post(ts.URL+"/api/trip", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out model.TripResponse
	decode(t, resp, &out)
	if out.Origin != "San Francisco, CA" {
		t.Fatalf("origin = %q", out.Origin)
	}
}

func TestTrip_BadRequests(t *testing.T) {
	ts := newTestServer(t, nil, generous)
	tests := []struct {
		name  string
		do    func() (*http.Response, error)
		field string
	}{
		{
			name: "radius 37",
			do: func() (*http.Response, error) {
				return http.Get(ts.URL + "/route?origin=SF&destination=LA&radius=37")
			},
			field: "radiusMiles",
		},
		{
			name: "radius not a number",
			do: func() (*http.Response, error) {
				return http.Get(ts.URL + "/route?origin=SF&destination=LA&radius=far")
			},
			field: "radiusMiles",
		},
		{
			name: "missing destination",
			do: func() (*http.Response, error) {
				return http.Post(ts.URL+"/api/trip", "application/json", strings.NewReader(`{"origin":"SF"}`))
			},
			field: "destination",
		},
		{
			name: "malformed json",
			do: func() (*http.Response, error) {
				return http.Post(ts.URL+"/api/trip", "application/json", strings.NewReader(`{"origin":`))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.do()
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			var body errorBody
			decode(t, resp, &body)
			if tt.field == "" {
				return
			}
			if len(body.Fields) == 0 || body.Fields[0].Field != tt.field {
				t.Fatalf("fields = %+v, want %s", body.Fields, tt.field)
			}
		})
	}
}

func TestTrip_UpstreamFailures(t *testing.T) {
	tests := []struct {
		kind   directions.Kind
		status int
	}{
		{kind: directions.KindUnavailable, status: http.StatusBadGateway},
		{kind: directions.KindRateLimited, status: http.StatusBadGateway},
		{kind: directions.KindNotFound, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			p := directions.ProviderFunc(func(ctx context.Context, o, d string) directions.Result {
				return directions.Failure(tt.kind, errors.New("internal detail 10.0.0.7"))
			})
			ts := newTestServer(t, p, generous)
			resp, err := http.Get(ts.URL + "/route?origin=SF&destination=LA")
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body errorBody
			decode(t, resp, &body)
			if strings.Contains(body.Error, "10.0.0.7") {
				t.Fatal("internal cause leaked to the client")
			}
		})
	}
}

func TestRoute_RateLimited(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.Options{Limit: 2, Window: time.Minute})
	u := ts.URL + "/route?origin=SF&destination=LA"

	for i := 0; i < 2; i++ {
		resp, err := http.Get(u)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("call %d: status = %d", i+1, resp.StatusCode)
		}
	}

	resp, err := http.Get(u)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
	var body errorBody
	decode(t, resp, &body)
	if body.RetryAfterMs <= 0 {
		t.Fatalf("retryAfterMs = %d", body.RetryAfterMs)
	}
}

func TestCities(t *testing.T) {
	ts := newTestServer(t, nil, generous)
	resp, err := http.Get(ts.URL + "/cities?q=san+fran&limit=3")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Cities []citySuggestion `json:"cities"`
	}
	decode(t, resp, &body)
	if len(body.Cities) == 0 || body.Cities[0].Label != "San Francisco, CA" {
		t.Fatalf("cities = %+v", body.Cities)
	}
	if len(body.Cities) > 3 {
		t.Fatalf("limit ignored: %d results", len(body.Cities))
	}

	resp, err = http.Get(ts.URL + "/cities?q=NYC")
	if err != nil {
		t.Fatal(err)
	}
	body.Cities = nil
	decode(t, resp, &body)
	if len(body.Cities) != 1 || body.Cities[0].Label != "New York, NY" || body.Cities[0].Score != 1.0 {
		t.Fatalf("short code suggestions = %+v", body.Cities)
	}
}

func TestAdminInvalidate(t *testing.T) {
	ts := newTestServer(t, nil, generous)
	resp, err := http.Get(ts.URL + "/route?origin=SF&destination=LA")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	post := func(name, token string) *http.Response {
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/admin/cache/invalidate?name="+url.QueryEscape(name), nil)
		if token != "" {
			req.Header.Set("X-Admin-Token", token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	if resp := post("francisco", "wrong"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d", resp.StatusCode)
	}
	if resp := post("", "s3cret"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty name status = %d", resp.StatusCode)
	}

	resp = post("FRANCISCO", "s3cret")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]int
	decode(t, resp, &body)
	if body["removed"] != 1 {
		t.Fatalf("removed = %d", body["removed"])
	}

	resp, err = http.Get(ts.URL + "/route?origin=SF&destination=LA")
	if err != nil {
		t.Fatal(err)
	}
	var out model.TripResponse
	decode(t, resp, &out)
	if out.Cached {
		t.Fatal("route should be refetched after invalidation")
	}
}

func TestDebugEndpoints(t *testing.T) {
	ts := newTestServer(t, nil, generous)
	for i := 0; i < 2; i++ {
		resp, err := http.Get(ts.URL + "/route?origin=SF&destination=LA")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
	}

	resp, err := http.Get(ts.URL + "/debug/cache_stats")
	if err != nil {
		t.Fatal(err)
	}
	var stats map[string]int
	decode(t, resp, &stats)
	if stats["hits"] != 1 || stats["size"] != 1 {
		t.Fatalf("stats = %v", stats)
	}

	resp, err = http.Post(ts.URL+"/debug/clear_cache", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	var cleared map[string]int
	decode(t, resp, &cleared)
	if cleared["removed"] != 1 {
		t.Fatalf("removed = %d, want the stored row too", cleared["removed"])
	}

	resp, err = http.Get(ts.URL + "/debug/cache_stats")
	if err != nil {
		t.Fatal(err)
	}
	decode(t, resp, &stats)
	if stats["size"] != 0 {
		t.Fatalf("size after clear = %d", stats["size"])
	}

	resp, err = http.Get(ts.URL + "/route?origin=SF&destination=LA")
	if err != nil {
		t.Fatal(err)
	}
	var out model.TripResponse
	decode(t, resp, &out)
	if out.Cached {
		t.Fatal("route should be refetched after clearing the cache")
	}
}
