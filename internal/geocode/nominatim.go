// Package geocode turns catalog addresses into coordinates.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/atharv3903/tripcorridor/internal/model"
)

type Kind int

const (
	KindOK Kind = iota
	KindNotFound
	KindUnavailable
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	case KindRateLimited:
		return "rate_limited"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Result is the tagged outcome of one geocoding call.
type Result struct {
	Kind  Kind
	Point model.LatLng
	Err   error
}

func (r Result) OK() bool { return r.Kind == KindOK }

func failure(kind Kind, err error) Result { return Result{Kind: kind, Err: err} }

// Geocoder resolves a free-text address.
type Geocoder interface {
	Geocode(ctx context.Context, address string) Result
}

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultUserAgent    = "tripcorridor-geocoder/1.0"
)

type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Nominatim is a client for the OSM Nominatim search API. It does not pace
// itself; callers go through a Task.
type Nominatim struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewNominatim(cfg NominatimConfig) *Nominatim {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultNominatimURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Nominatim{
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (n *Nominatim) Geocode(ctx context.Context, address string) Result {
	params := url.Values{
		"q":      {address},
		"format": {"json"},
		"limit":  {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return failure(KindUnavailable, err)
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return failure(KindUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return failure(KindRateLimited, fmt.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return failure(KindUnavailable, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return failure(KindUnavailable, fmt.Errorf("decode response: %w", err))
	}
	if len(results) == 0 {
		return failure(KindNotFound, errors.New("address not found"))
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return failure(KindUnavailable, fmt.Errorf("parse lat: %w", err))
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return failure(KindUnavailable, fmt.Errorf("parse lon: %w", err))
	}
	return Result{Kind: KindOK, Point: model.LatLng{Lat: lat, Lng: lng}}
}
