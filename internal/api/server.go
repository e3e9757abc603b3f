package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/atharv3903/tripcorridor/internal/model"
	"github.com/atharv3903/tripcorridor/internal/ratelimit"
	"github.com/atharv3903/tripcorridor/internal/trip"
)

const (
	defaultSuggestLimit = 5
	maxSuggestLimit     = 20
	maxBodyBytes        = 1 << 16
)

type Options struct {
	Limiter    *ratelimit.Limiter
	RateLimit  ratelimit.Options
	AdminToken string
}

type Server struct {
	Mux        *http.ServeMux
	Trip       *trip.Service
	Limiter    *ratelimit.Limiter
	RateLimit  ratelimit.Options
	AdminToken string
}

func New(svc *trip.Service, opts Options) *Server {
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.New()
	}
	if opts.RateLimit.Limit <= 0 || opts.RateLimit.Window <= 0 {
		opts.RateLimit = ratelimit.Options{Limit: 30, Window: time.Minute}
	}
	s := &Server{
		Mux:        http.NewServeMux(),
		Trip:       svc,
		Limiter:    opts.Limiter,
		RateLimit:  opts.RateLimit,
		AdminToken: opts.AdminToken,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	s.Mux.HandleFunc("GET /route", s.limited(s.handleRoute))
	s.Mux.HandleFunc("POST /api/trip", s.limited(s.handleTrip))
	s.Mux.HandleFunc("GET /cities", s.handleCities)
	s.Mux.HandleFunc("POST /admin/cache/invalidate", s.admin(s.handleInvalidate))

	s.Mux.HandleFunc("POST /debug/clear_cache", func(w http.ResponseWriter, r *http.Request) {
		n, err := s.Trip.Routes().Clear(r.Context())
		if err != nil {
			log.Printf("api: clear cache: %v", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"removed": n})
	})

	s.Mux.HandleFunc("GET /debug/cache_stats", func(w http.ResponseWriter, r *http.Request) {
		lru := s.Trip.Routes().LRU()
		gets, hits, puts, evictions := lru.Stats()
		checks, denied, limEvictions := s.Limiter.Stats()
		writeJSON(w, http.StatusOK, map[string]int{
			"gets":              gets,
			"hits":              hits,
			"puts":              puts,
			"evictions":         evictions,
			"size":              lru.Len(),
			"limiter_keys":      s.Limiter.Len(),
			"limiter_checks":    checks,
			"limiter_denied":    denied,
			"limiter_evictions": limEvictions,
		})
	})
}

type errorBody struct {
	Error        string            `json:"error"`
	Fields       []trip.FieldError `json:"fields,omitempty"`
	RetryAfterMs int64             `json:"retryAfterMs,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limited admits at most RateLimit requests per client IP per window.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := s.Limiter.Check("ip:"+clientIP(r), s.RateLimit)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(s.RateLimit.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			secs := int(math.Ceil(d.ResetIn.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeJSON(w, http.StatusTooManyRequests, errorBody{
				Error:        "too many requests",
				RetryAfterMs: d.ResetIn.Milliseconds(),
			})
			return
		}
		next(w, r)
	}
}

func (s *Server) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-Admin-Token")
		if s.AdminToken == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.AdminToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := model.TripRequest{
		Origin:      q.Get("origin"),
		Destination: q.Get("destination"),
	}
	if raw := strings.TrimSpace(q.Get("radius")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{
				Error:  "invalid request",
				Fields: []trip.FieldError{{Field: "radiusMiles", Message: "must be a number"}},
			})
			return
		}
		req.RadiusMiles = v
	}
	s.plan(w, r, req)
}

func (s *Server) handleTrip(w http.ResponseWriter, r *http.Request) {
	var req model.TripRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed JSON body"})
		return
	}
	s.plan(w, r, req)
}

func (s *Server) plan(w http.ResponseWriter, r *http.Request, req model.TripRequest) {
	resp, err := s.Trip.PlanTrip(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// fail maps service errors to responses. Internal causes are logged, never
// returned to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *trip.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request", Fields: ve.Fields})
	case errors.Is(err, trip.ErrRouteNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no route found between these locations"})
	case errors.Is(err, trip.ErrUpstreamUnavailable):
		log.Printf("api: %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "directions service unavailable, try again later"})
	default:
		log.Printf("api: %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

type citySuggestion struct {
	Name   string  `json:"name"`
	Region string  `json:"region"`
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultSuggestLimit
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxSuggestLimit)
		}
	}
	matches := s.Trip.Suggest(q.Get("q"), limit)
	out := make([]citySuggestion, len(matches))
	for i, m := range matches {
		out[i] = citySuggestion{Name: m.City.Name, Region: m.City.Region, Label: m.City.Label(), Score: m.Score}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cities": out})
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:  "invalid request",
			Fields: []trip.FieldError{{Field: "name", Message: "is required"}},
		})
		return
	}
	n, err := s.Trip.Routes().Invalidate(r.Context(), name)
	if err != nil {
		log.Printf("api: invalidate %q: %v", name, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	log.Printf("api: invalidated %d cached routes matching %q", n, name)
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}
