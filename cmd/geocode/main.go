// Command geocode fills in coordinates for restaurants that have none. It makes
// one sequential pass, paced to the geocoder's usage policy, and prints a
// summary.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"

	"github.com/atharv3903/tripcorridor/internal/config"
	"github.com/atharv3903/tripcorridor/internal/db"
	"github.com/atharv3903/tripcorridor/internal/geocode"
	"github.com/atharv3903/tripcorridor/internal/logging"
	"github.com/atharv3903/tripcorridor/internal/ratelimit"
	"github.com/atharv3903/tripcorridor/internal/trip"
)

func main() {
	logging.Init()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if cfg.MySQLDSN == "" {
		log.Fatal("geocode needs a database: set -dsn or DB_DSN")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	store := db.Store{DB: conn}
	svc := trip.New(trip.Deps{
		Geocoder: geocode.NewNominatim(geocode.NominatimConfig{
			BaseURL:   cfg.Geocoder.BaseURL,
			UserAgent: cfg.Geocoder.UserAgent,
			Timeout:   cfg.Geocoder.Timeout,
		}),
		GeocodeCatalog: store,
		GeocodePacer:   ratelimit.NewPacer(cfg.Geocoder.Interval),
	}, trip.WithGeocodeOptions(
		geocode.WithLimit(cfg.Geocoder.BatchLimit),
		geocode.WithCallTimeout(cfg.Geocoder.Timeout),
	))

	log.Printf("geocoding up to %d restaurants, one every %v", cfg.Geocoder.BatchLimit, cfg.Geocoder.Interval)
	rep, err := svc.GeocodeMissing(ctx)
	if err != nil {
		log.Printf("pass stopped early: %v", err)
	}

	out, merr := json.MarshalIndent(rep, "", "  ")
	if merr != nil {
		log.Printf("encode report: %v", merr)
		out = []byte(fmt.Sprintf("%+v", rep))
	}
	fmt.Println("\n========== GEOCODE SUMMARY ==========")
	fmt.Println(string(out))
	fmt.Println("=====================================")

	if err != nil {
		os.Exit(1)
	}
}
