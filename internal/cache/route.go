// Package cache deduplicates directions lookups. Routes are keyed by the
// ordered pair of endpoint ids: (A, B) and (B, A) are separate entries.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/atharv3903/tripcorridor/internal/directions"
	"github.com/atharv3903/tripcorridor/internal/model"
)

const (
	KeyPrefix  = "directions:"
	DefaultTTL = 720 * time.Hour
)

// ErrStore wraps every failure returned by the backing Store.
var ErrStore = errors.New("route cache store")

// Key is the persisted cache key for an ordered endpoint pair. The origin id
// is length-prefixed so a separator inside either id cannot alias another pair.
func Key(originID, destinationID string) string {
	return fmt.Sprintf("%s%d:%s|%s", KeyPrefix, len(originID), originID, destinationID)
}

// FetchFunc performs the upstream lookup on a miss.
type FetchFunc func(ctx context.Context) directions.Result

type RouteCache struct {
	store Store
	lru   *LRU
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group
}

type Option func(*RouteCache)

// WithTTL sets how long saved routes stay live. Zero means forever.
func WithTTL(d time.Duration) Option {
	return func(c *RouteCache) {
		if d >= 0 {
			c.ttl = d
		}
	}
}

func WithLRU(l *LRU) Option {
	return func(c *RouteCache) {
		if l != nil {
			c.lru = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *RouteCache) { c.now = now }
}

func New(store Store, opts ...Option) *RouteCache {
	c := &RouteCache{
		store: store,
		lru:   NewLRU(DefaultLRUCapacity),
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// LRU exposes the in-process layer for stats and manual clearing.
func (c *RouteCache) LRU() *LRU { return c.lru }

func (c *RouteCache) expired(r *model.CachedRoute, now time.Time) bool {
	return c.ttl > 0 && !now.Before(r.CreatedAt.Add(c.ttl))
}

// FindCachedRoute looks up the exact ordered pair, in memory first and then
// in the store.
func (c *RouteCache) FindCachedRoute(ctx context.Context, originID, destinationID string) (*model.CachedRoute, bool, error) {
	now := c.now()
	if r, ok := c.lru.Get(originID, destinationID); ok {
		if !c.expired(r, now) {
			return r, true, nil
		}
		c.lru.Remove(originID, destinationID)
	}

	r, ok, err := c.store.FindRoute(ctx, Key(originID, destinationID), now)
	if err != nil {
		return nil, false, fmt.Errorf("%w: find %s: %w", ErrStore, Key(originID, destinationID), err)
	}
	if !ok || c.expired(r, now) {
		return nil, false, nil
	}
	c.lru.Put(r)
	return r, true, nil
}

// SaveRoute stores a freshly fetched route and returns its id. Saving a pair
// that already exists replaces it.
func (c *RouteCache) SaveRoute(ctx context.Context, originText, destinationText string, route directions.Route) (string, error) {
	r, err := c.save(ctx, originText, destinationText, route)
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

func (c *RouteCache) save(ctx context.Context, originText, destinationText string, route directions.Route) (*model.CachedRoute, error) {
	now := c.now()
	r := &model.CachedRoute{
		ID:              uuid.NewString(),
		OriginID:        model.EndpointID(originText),
		DestinationID:   model.EndpointID(destinationText),
		Origin:          strings.TrimSpace(originText),
		Destination:     strings.TrimSpace(destinationText),
		Polyline:        route.Polyline,
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: route.DurationSeconds,
		Bounds:          route.Bounds,
		CreatedAt:       now.UTC(),
	}
	if r.Bounds == (model.Bounds{}) {
		r.Bounds = model.BoundsOf(r.Polyline)
	}

	var expiresAt *time.Time
	if c.ttl > 0 {
		t := r.CreatedAt.Add(c.ttl)
		expiresAt = &t
	}

	key := Key(r.OriginID, r.DestinationID)
	if err := c.store.UpsertRoute(ctx, key, r, expiresAt); err != nil {
		return nil, fmt.Errorf("%w: upsert %s: %w", ErrStore, key, err)
	}
	c.lru.Put(r)
	return r, nil
}

// Invalidate purges every route whose "Origin → Destination" name contains
// pattern, case-insensitively, and returns the number of stored rows removed.
func (c *RouteCache) Invalidate(ctx context.Context, pattern string) (int, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return 0, errors.New("route cache: empty invalidation pattern")
	}
	needle := strings.ToLower(pattern)
	c.lru.RemoveMatching(func(r *model.CachedRoute) bool {
		return strings.Contains(strings.ToLower(r.Name()), needle)
	})
	n, err := c.store.DeleteRoutes(ctx, pattern)
	if err != nil {
		return 0, fmt.Errorf("%w: delete %q: %w", ErrStore, pattern, err)
	}
	return n, nil
}

// Clear drops every cached route from both layers and returns the number of
// store rows removed.
func (c *RouteCache) Clear(ctx context.Context) (int, error) {
	c.lru.Clear()
	n, err := c.store.DeleteRoutes(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("%w: clear: %w", ErrStore, err)
	}
	return n, nil
}

// Resolve returns the cached route for the pair or fetches and saves it.
// Concurrent misses for the same pair share a single fetch. The bool reports
// whether the route came from the cache. Fetch failures are returned as-is
// and nothing is stored.
func (c *RouteCache) Resolve(ctx context.Context, originText, destinationText string, fetch FetchFunc) (*model.CachedRoute, bool, error) {
	oid, did := model.EndpointID(originText), model.EndpointID(destinationText)
	if r, ok, err := c.FindCachedRoute(ctx, oid, did); err != nil {
		return nil, false, err
	} else if ok {
		return r, true, nil
	}

	v, err, _ := c.group.Do(Key(oid, did), func() (any, error) {
		res := fetch(ctx)
		if !res.OK() {
			return nil, res.Err
		}
		return c.save(ctx, originText, destinationText, res.Route)
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*model.CachedRoute), false, nil
}
