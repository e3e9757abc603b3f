package trip

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/atharv3903/tripcorridor/internal/model"
)

// Catalog returns restaurants inside a bounding box.
type Catalog interface {
	RestaurantsWithin(ctx context.Context, b model.Bounds) ([]model.Restaurant, error)
}

// MemoryCatalog is an in-process catalog for development and tests. It also
// satisfies geocode.Catalog.
type MemoryCatalog struct {
	mu        sync.RWMutex
	rows      map[int64]model.Restaurant
	attempted map[int64]time.Time
}

func NewMemoryCatalog(rs ...model.Restaurant) *MemoryCatalog {
	c := &MemoryCatalog{
		rows:      make(map[int64]model.Restaurant, len(rs)),
		attempted: make(map[int64]time.Time),
	}
	for _, r := range rs {
		c.rows[r.ID] = r
	}
	return c
}

func (c *MemoryCatalog) sorted(keep func(model.Restaurant) bool) []model.Restaurant {
	out := make([]model.Restaurant, 0)
	for _, r := range c.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *MemoryCatalog) RestaurantsWithin(_ context.Context, b model.Bounds) ([]model.Restaurant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sorted(func(r model.Restaurant) bool {
		p, ok := r.Location()
		return ok &&
			p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
			p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
	}), nil
}

func (c *MemoryCatalog) MissingCoordinates(_ context.Context, limit int) ([]model.Restaurant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := c.sorted(func(r model.Restaurant) bool { return r.Lat == nil || r.Lng == nil })
	// never attempted first, then least recently attempted
	sort.SliceStable(out, func(i, j int) bool {
		ai, oki := c.attempted[out[i].ID]
		aj, okj := c.attempted[out[j].ID]
		if oki != okj {
			return !oki
		}
		return ai.Before(aj)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *MemoryCatalog) UpdateCoordinates(_ context.Context, id int64, lat, lng float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rows[id]
	if !ok {
		return nil
	}
	r.Lat, r.Lng = &lat, &lng
	c.rows[id] = r
	return nil
}

func (c *MemoryCatalog) MarkAttempted(_ context.Context, id int64, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rows[id]; ok {
		c.attempted[id] = at
	}
	return nil
}
