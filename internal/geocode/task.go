package geocode

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/atharv3903/tripcorridor/internal/model"
	"github.com/atharv3903/tripcorridor/internal/ratelimit"
)

const (
	DefaultBatchLimit  = 500
	DefaultCallTimeout = 10 * time.Second
)

// Catalog is the slice of the restaurant store a Task needs.
// MissingCoordinates must return never-attempted entries first, then the
// least recently attempted, so unresolvable addresses cannot starve the rest.
type Catalog interface {
	MissingCoordinates(ctx context.Context, limit int) ([]model.Restaurant, error)
	UpdateCoordinates(ctx context.Context, id int64, lat, lng float64) error
	MarkAttempted(ctx context.Context, id int64, at time.Time) error
}

// Outcome describes one processed entry. Err is set when the coordinates
// were found but could not be stored.
type Outcome struct {
	Restaurant model.Restaurant
	Result     Result
	Err        error
}

func (o Outcome) Updated() bool { return o.Result.OK() && o.Err == nil }

type Report struct {
	Attempted int `json:"attempted"`
	Updated   int `json:"updated"`
	NotFound  int `json:"notFound"`
	Failed    int `json:"failed"`
}

// Task walks the restaurants lacking coordinates one at a time. Next never
// starts a call sooner than the pacer allows.
type Task struct {
	geocoder Geocoder
	catalog  Catalog
	pacer    *ratelimit.Pacer

	limit   int
	timeout time.Duration
	now     func() time.Time

	loaded  bool
	pending []model.Restaurant
}

type TaskOption func(*Task)

// WithLimit caps how many entries one pass will attempt.
func WithLimit(n int) TaskOption {
	return func(t *Task) {
		if n > 0 {
			t.limit = n
		}
	}
}

// WithCallTimeout bounds each geocoding call.
func WithCallTimeout(d time.Duration) TaskOption {
	return func(t *Task) {
		if d > 0 {
			t.timeout = d
		}
	}
}

func NewTask(g Geocoder, c Catalog, p *ratelimit.Pacer, opts ...TaskOption) *Task {
	if p == nil {
		p = ratelimit.NewPacer(time.Second)
	}
	t := &Task{
		geocoder: g,
		catalog:  c,
		pacer:    p,
		limit:    DefaultBatchLimit,
		timeout:  DefaultCallTimeout,
		now:      time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Next geocodes the next pending entry. It returns false once the pass is
// exhausted. The error is non-nil only when the pass cannot continue.
func (t *Task) Next(ctx context.Context) (Outcome, bool, error) {
	if !t.loaded {
		rs, err := t.catalog.MissingCoordinates(ctx, t.limit)
		if err != nil {
			return Outcome{}, false, fmt.Errorf("load pending restaurants: %w", err)
		}
		t.pending = rs
		t.loaded = true
	}
	if len(t.pending) == 0 {
		return Outcome{}, false, nil
	}

	if err := t.pacer.Wait(ctx); err != nil {
		return Outcome{}, false, err
	}
	r := t.pending[0]
	t.pending = t.pending[1:]

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	res := t.geocoder.Geocode(callCtx, r.GeocodeQuery())
	cancel()

	out := Outcome{Restaurant: r, Result: res}
	if res.OK() {
		if err := t.catalog.UpdateCoordinates(ctx, r.ID, res.Point.Lat, res.Point.Lng); err != nil {
			out.Err = fmt.Errorf("update restaurant %d: %w", r.ID, err)
		}
	}
	if !out.Updated() {
		if err := t.catalog.MarkAttempted(ctx, r.ID, t.now()); err != nil {
			log.Printf("geocode: mark restaurant %d attempted: %v", r.ID, err)
		}
	}
	return out, true, nil
}

// Remaining is the number of entries not yet attempted in this pass.
func (t *Task) Remaining() int { return len(t.pending) }

// Run drains the task. Entries that fail are logged and skipped. A cancelled
// context stops the pass and returns the partial report with the error.
func (t *Task) Run(ctx context.Context) (Report, error) {
	var rep Report
	for {
		out, ok, err := t.Next(ctx)
		if err != nil {
			log.Printf("geocode: pass stopped after %d entries: %v", rep.Attempted, err)
			return rep, err
		}
		if !ok {
			return rep, nil
		}

		rep.Attempted++
		switch {
		case out.Updated():
			rep.Updated++
		case out.Err != nil:
			rep.Failed++
			log.Printf("geocode: skip restaurant %d (%s): %v", out.Restaurant.ID, out.Restaurant.Name, out.Err)
		case out.Result.Kind == KindNotFound:
			rep.NotFound++
			log.Printf("geocode: no match for restaurant %d (%s)", out.Restaurant.ID, out.Restaurant.Name)
		default:
			rep.Failed++
			log.Printf("geocode: skip restaurant %d (%s): %s: %v", out.Restaurant.ID, out.Restaurant.Name, out.Result.Kind, out.Result.Err)
		}
	}
}
