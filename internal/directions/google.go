package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/atharv3903/tripcorridor/internal/model"
)

const (
	DefaultGoogleURL = "https://maps.googleapis.com/maps/api/directions/json"
	defaultTimeout   = 10 * time.Second
)

type GoogleConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Google talks to the Google Directions JSON API.
type Google struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

func NewGoogle(cfg GoogleConfig) *Google {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGoogleURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Google{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type googleLatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Bounds struct {
			Northeast googleLatLng `json:"northeast"`
			Southwest googleLatLng `json:"southwest"`
		} `json:"bounds"`
		Legs []struct {
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
	} `json:"routes"`
}

func (g *Google) Directions(ctx context.Context, origin, destination string) Result {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := url.Values{
		"origin":      {origin},
		"destination": {destination},
		"mode":        {"driving"},
		"key":         {g.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Failure(KindUnavailable, err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Failure(KindUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Failure(KindRateLimited, fmt.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return Failure(KindUnavailable, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	var body googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Failure(KindUnavailable, fmt.Errorf("decode response: %w", err))
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return Failure(KindNotFound, errors.New(body.Status))
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return Failure(KindRateLimited, statusError(body.Status, body.ErrorMessage))
	default:
		return Failure(KindUnavailable, statusError(body.Status, body.ErrorMessage))
	}
	if len(body.Routes) == 0 {
		return Failure(KindNotFound, errors.New("empty routes"))
	}

	r := body.Routes[0]
	coords, _, err := polyline.DecodeCoords([]byte(r.OverviewPolyline.Points))
	if err != nil {
		return Failure(KindUnavailable, fmt.Errorf("decode polyline: %w", err))
	}
	if len(coords) == 0 {
		return Failure(KindNotFound, errors.New("empty polyline"))
	}

	route := Route{Polyline: make([]model.LatLng, len(coords))}
	for i, c := range coords {
		route.Polyline[i] = model.LatLng{Lat: c[0], Lng: c[1]}
	}
	for _, leg := range r.Legs {
		route.DistanceMeters += leg.Distance.Value
		route.DurationSeconds += leg.Duration.Value
	}
	route.Bounds = model.Bounds{
		NorthEast: model.LatLng{Lat: r.Bounds.Northeast.Lat, Lng: r.Bounds.Northeast.Lng},
		SouthWest: model.LatLng{Lat: r.Bounds.Southwest.Lat, Lng: r.Bounds.Southwest.Lng},
	}
	if route.Bounds == (model.Bounds{}) {
		route.Bounds = model.BoundsOf(route.Polyline)
	}
	return Success(route)
}

func statusError(status, msg string) error {
	if msg == "" {
		return errors.New(status)
	}
	return fmt.Errorf("%s: %s", status, msg)
}
