package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/atharv3903/tripcorridor/internal/api"
	"github.com/atharv3903/tripcorridor/internal/cache"
	"github.com/atharv3903/tripcorridor/internal/config"
	"github.com/atharv3903/tripcorridor/internal/db"
	"github.com/atharv3903/tripcorridor/internal/directions"
	"github.com/atharv3903/tripcorridor/internal/logging"
	"github.com/atharv3903/tripcorridor/internal/ratelimit"
	"github.com/atharv3903/tripcorridor/internal/resolver"
	"github.com/atharv3903/tripcorridor/internal/trip"
)

func main() {
	logging.Init()

	cfg, err := config.FromFlagsServer()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store   cache.Store  = cache.NewMemoryStore()
		catalog trip.Catalog = trip.NewMemoryCatalog()
		cities               = resolver.DefaultCities()
	)

	if cfg.MySQLDSN != "" {
		conn, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()

		s := db.Store{DB: conn}
		if cfg.Migrate {
			if err := s.Migrate(ctx); err != nil {
				log.Fatalf("migrate: %v", err)
			}
		}
		store, catalog = s, s

		rows, err := s.Cities(ctx)
		switch {
		case err != nil:
			log.Printf("cities table unavailable, using built-in gazetteer: %v", err)
		case len(rows) > 0:
			cities = rows
		}
	} else {
		log.Println("no DSN configured, caching routes in memory")
	}

	res := resolver.New(cities)

	var provider directions.Provider
	switch cfg.Directions.Provider {
	case "google":
		provider = directions.NewGoogle(directions.GoogleConfig{
			BaseURL: cfg.Directions.BaseURL,
			APIKey:  cfg.Directions.APIKey,
			Timeout: cfg.Directions.Timeout,
		})
	default:
		provider = directions.Line{Locate: directions.CityLocator(res)}
	}

	limiter := ratelimit.New()
	routes := cache.New(store,
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithLRU(cache.NewLRU(cfg.Cache.LRUCapacity)),
	)

	svc := trip.New(trip.Deps{
		Resolver: res,
		Provider: provider,
		Routes:   routes,
		Catalog:  catalog,
		Limiter:  limiter,
	},
		trip.WithThrottle(cfg.Directions.Throttle),
		trip.WithThrottleTimeout(cfg.Directions.ThrottleTimeout),
	)

	srv := api.New(svc, api.Options{
		Limiter:    limiter,
		RateLimit:  cfg.RateLimit,
		AdminToken: cfg.AdminToken,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Directions.ThrottleTimeout + cfg.Directions.Timeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("tripcorridor listening on %s (directions=%s, %d cities)", cfg.Addr, cfg.Directions.Provider, len(cities))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("server stopped")
}
