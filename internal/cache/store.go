package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/atharv3903/tripcorridor/internal/model"
)

// Store persists routes under a cache key. UpsertRoute must be idempotent on
// the key: a second write for the same key replaces the first.
type Store interface {
	FindRoute(ctx context.Context, key string, now time.Time) (*model.CachedRoute, bool, error)
	UpsertRoute(ctx context.Context, key string, r *model.CachedRoute, expiresAt *time.Time) error
	// DeleteRoutes removes rows whose entity name contains pattern,
	// case-insensitively, and returns how many were removed. An empty
	// pattern removes every route row.
	DeleteRoutes(ctx context.Context, pattern string) (int, error)
}

type memRow struct {
	route     *model.CachedRoute
	expiresAt *time.Time
}

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]memRow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]memRow)}
}

func (s *MemoryStore) FindRoute(_ context.Context, key string, now time.Time) (*model.CachedRoute, bool, error) {
	s.mu.RLock()
	row, ok := s.rows[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if row.expiresAt != nil && !now.Before(*row.expiresAt) {
		return nil, false, nil
	}
	cp := *row.route
	return &cp, true, nil
}

func (s *MemoryStore) UpsertRoute(_ context.Context, key string, r *model.CachedRoute, expiresAt *time.Time) error {
	cp := *r
	s.mu.Lock()
	s.rows[key] = memRow{route: &cp, expiresAt: expiresAt}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeleteRoutes(_ context.Context, pattern string) (int, error) {
	needle := strings.ToLower(pattern)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, row := range s.rows {
		if strings.Contains(strings.ToLower(row.route.Name()), needle) {
			delete(s.rows, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
