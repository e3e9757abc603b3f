package db

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/atharv3903/tripcorridor/internal/model"
)

// CacheTypeDirections tags route rows in api_cache.
const CacheTypeDirections = "directions"

//go:embed schema.sql
var schema string

type Store struct {
	DB *sql.DB
}

// Migrate creates missing tables.
func (s Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

type routeMetadata struct {
	OriginID        string `json:"originId"`
	DestinationID   string `json:"destinationId"`
	DistanceMeters  int    `json:"distanceMeters"`
	DurationSeconds int    `json:"durationSeconds"`
	Points          int    `json:"points"`
}

func (s Store) FindRoute(ctx context.Context, key string, now time.Time) (*model.CachedRoute, bool, error) {
	var payload []byte
	err := s.DB.QueryRowContext(ctx, `
        SELECT payload
        FROM api_cache
        WHERE cache_key=? AND cache_type=? AND (expires_at IS NULL OR expires_at > ?)
    `, key, CacheTypeDirections, now.UTC()).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var r model.CachedRoute
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, false, fmt.Errorf("decode payload for %s: %w", key, err)
	}
	return &r, true, nil
}

// UpsertRoute writes the route under key. A concurrent write for the same
// key replaces the row.
func (s Store) UpsertRoute(ctx context.Context, key string, r *model.CachedRoute, expiresAt *time.Time) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(routeMetadata{
		OriginID:        r.OriginID,
		DestinationID:   r.DestinationID,
		DistanceMeters:  r.DistanceMeters,
		DurationSeconds: r.DurationSeconds,
		Points:          len(r.Polyline),
	})
	if err != nil {
		return err
	}

	_, err = s.DB.ExecContext(ctx, `
        INSERT INTO api_cache (cache_key, cache_type, entity_name, payload, metadata, fetched_at, expires_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            entity_name=VALUES(entity_name),
            payload=VALUES(payload),
            metadata=VALUES(metadata),
            fetched_at=VALUES(fetched_at),
            expires_at=VALUES(expires_at)
    `, key, CacheTypeDirections, r.Name(), payload, meta, r.CreatedAt.UTC(), expiresAt)
	return err
}

func (s Store) DeleteRoutes(ctx context.Context, pattern string) (int, error) {
	res, err := s.DB.ExecContext(ctx, `
        DELETE FROM api_cache
        WHERE cache_type=? AND LOWER(entity_name) LIKE ? ESCAPE '\\'
    `, CacheTypeDirections, "%"+escapeLike(strings.ToLower(pattern))+"%")
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

const restaurantColumns = `id, name, address, city, state, lat, lng, rating`

func scanRestaurants(rows *sql.Rows) ([]model.Restaurant, error) {
	defer rows.Close()

	out := make([]model.Restaurant, 0, 64)
	for rows.Next() {
		var r model.Restaurant
		var lat, lng, rating sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.Name, &r.Address, &r.City, &r.State, &lat, &lng, &rating); err != nil {
			return nil, err
		}
		r.Lat = nullable(lat)
		r.Lng = nullable(lng)
		r.Rating = nullable(rating)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// RestaurantsWithin returns geocoded restaurants inside b.
func (s Store) RestaurantsWithin(ctx context.Context, b model.Bounds) ([]model.Restaurant, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT `+restaurantColumns+`
        FROM restaurants
        WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?
    `, b.SouthWest.Lat, b.NorthEast.Lat, b.SouthWest.Lng, b.NorthEast.Lng)
	if err != nil {
		return nil, err
	}
	return scanRestaurants(rows)
}

// MissingCoordinates returns up to limit restaurants without a location.
// Never-attempted rows come first, then the least recently attempted.
func (s Store) MissingCoordinates(ctx context.Context, limit int) ([]model.Restaurant, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT `+restaurantColumns+`
        FROM restaurants
        WHERE lat IS NULL OR lng IS NULL
        ORDER BY geocode_attempted_at IS NOT NULL, geocode_attempted_at, id
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	return scanRestaurants(rows)
}

func (s Store) UpdateCoordinates(ctx context.Context, id int64, lat, lng float64) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE restaurants SET lat=?, lng=? WHERE id=?`, lat, lng, id)
	return err
}

// MarkAttempted records a geocoding attempt that left the row without
// coordinates.
func (s Store) MarkAttempted(ctx context.Context, id int64, at time.Time) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE restaurants SET geocode_attempted_at=? WHERE id=?`, at.UTC(), id)
	return err
}

// Cities loads the gazetteer table. An empty result means the embedded
// gazetteer should be used.
func (s Store) Cities(ctx context.Context) ([]model.City, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT name, region, population, lat, lng FROM cities`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.City
	for rows.Next() {
		var c model.City
		if err := rows.Scan(&c.Name, &c.Region, &c.Population, &c.Lat, &c.Lng); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
