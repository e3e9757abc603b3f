// Package ratelimit guards calls to external location services.
//
// Limiter is a sliding-window log: per key it keeps the request timestamps
// inside the trailing window. State is process-local and starts empty on every
// restart.
package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	defaultCleanupInterval = time.Minute
	defaultMaxKeys         = 10_000
	evictTargetFraction    = 0.8
)

// Options bound a single key.
type Options struct {
	Limit  int           `yaml:"limit" validate:"gte=1"`
	Window time.Duration `yaml:"window" validate:"gt=0"`
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	// ResetIn is how long until the oldest retained request leaves the window.
	ResetIn time.Duration
}

type window struct {
	stamps []time.Time
	span   time.Duration
}

// prune drops timestamps that have left the window ending at now.
func (w *window) prune(now time.Time) {
	i := 0
	for i < len(w.stamps) && now.Sub(w.stamps[i]) >= w.span {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// Limiter is safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	keys        map[string]*window
	lastCleanup time.Time

	cleanupInterval time.Duration
	maxKeys         int
	now             func() time.Time

	// stats
	checks    int
	denied    int
	evictions int
}

type Option func(*Limiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithCleanupInterval sets how often the opportunistic cleanup may run.
func WithCleanupInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.cleanupInterval = d
		}
	}
}

// WithMaxKeys sets the hard cap on tracked keys.
func WithMaxKeys(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.maxKeys = n
		}
	}
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		keys:            make(map[string]*window),
		cleanupInterval: defaultCleanupInterval,
		maxKeys:         defaultMaxKeys,
		now:             time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	l.lastCleanup = l.now()
	return l
}

// Check records an attempt for key and reports whether it is admitted.
// It never performs the guarded call itself.
func (l *Limiter) Check(key string, o Options) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.checks++

	if o.Limit <= 0 || o.Window <= 0 {
		l.denied++
		return Decision{Allowed: false, ResetIn: max(o.Window, time.Millisecond)}
	}

	w, ok := l.keys[key]
	if !ok {
		w = &window{}
		l.keys[key] = w
	}
	w.span = o.Window
	w.prune(now)

	var d Decision
	if len(w.stamps) < o.Limit {
		w.stamps = append(w.stamps, now)
		d = Decision{Allowed: true, Remaining: o.Limit - len(w.stamps)}
		if len(w.stamps) > 0 {
			d.ResetIn = w.stamps[0].Add(o.Window).Sub(now)
		}
	} else {
		l.denied++
		d = Decision{Allowed: false, Remaining: 0, ResetIn: w.stamps[0].Add(o.Window).Sub(now)}
	}

	if now.Sub(l.lastCleanup) >= l.cleanupInterval || len(l.keys) > l.maxKeys {
		l.cleanup(now)
	}
	return d
}

// Wait defers until key is admitted or ctx is done. It is meant for internal
// throttles where the caller should queue rather than fail.
func (l *Limiter) Wait(ctx context.Context, key string, o Options) error {
	for {
		d := l.Check(key, o)
		if d.Allowed {
			return nil
		}
		t := time.NewTimer(d.ResetIn)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// cleanup prunes every key, drops empty ones and, over the cap, evicts the
// keys with the oldest retained timestamp first. Caller holds mu.
func (l *Limiter) cleanup(now time.Time) {
	l.lastCleanup = now
	for k, w := range l.keys {
		w.prune(now)
		if len(w.stamps) == 0 {
			delete(l.keys, k)
		}
	}
	if len(l.keys) <= l.maxKeys {
		return
	}

	type aged struct {
		key    string
		oldest time.Time
	}
	all := make([]aged, 0, len(l.keys))
	for k, w := range l.keys {
		all = append(all, aged{key: k, oldest: w.stamps[0]})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].oldest.Before(all[j].oldest) })

	target := int(float64(l.maxKeys) * evictTargetFraction)
	for i := 0; len(l.keys) > target && i < len(all); i++ {
		delete(l.keys, all[i].key)
		l.evictions++
	}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// Stats returns (checks, denied, evictions).
func (l *Limiter) Stats() (checks, denied, evictions int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checks, l.denied, l.evictions
}
