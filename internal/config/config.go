package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/atharv3903/tripcorridor/internal/ratelimit"
)

type DirectionsConfig struct {
	// Provider is "google" or "line"; "line" needs no API key.
	Provider string        `yaml:"provider" validate:"oneof=google line"`
	APIKey   string        `yaml:"api_key" validate:"required_if=Provider google"`
	BaseURL  string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
	// Throttle bounds outbound calls per process; excess requests queue for
	// at most ThrottleTimeout.
	Throttle        ratelimit.Options `yaml:"throttle"`
	ThrottleTimeout time.Duration     `yaml:"throttle_timeout" validate:"gte=0"`
}

type GeocoderConfig struct {
	BaseURL    string        `yaml:"base_url" validate:"omitempty,url"`
	UserAgent  string        `yaml:"user_agent"`
	Timeout    time.Duration `yaml:"timeout" validate:"gte=0"`
	Interval   time.Duration `yaml:"interval" validate:"gte=0"`
	BatchLimit int           `yaml:"batch_limit" validate:"gte=0"`
}

type CacheConfig struct {
	TTL         time.Duration `yaml:"ttl" validate:"gte=0"`
	LRUCapacity int           `yaml:"lru_capacity" validate:"gte=0"`
}

type ServerConfig struct {
	Addr       string           `yaml:"addr" validate:"required"`
	MySQLDSN   string           `yaml:"mysql_dsn"`
	Migrate    bool             `yaml:"migrate"`
	AdminToken string           `yaml:"admin_token"`
	Directions DirectionsConfig `yaml:"directions"`
	Geocoder   GeocoderConfig   `yaml:"geocoder"`
	Cache      CacheConfig      `yaml:"cache"`
	// RateLimit applies per client IP on the public trip endpoints.
	RateLimit ratelimit.Options `yaml:"rate_limit"`
}

func defaults() ServerConfig {
	return ServerConfig{
		Addr: ":8080",
		Directions: DirectionsConfig{
			Provider:        "line",
			Timeout:         10 * time.Second,
			Throttle:        ratelimit.Options{Limit: 1, Window: time.Second},
			ThrottleTimeout: 15 * time.Second,
		},
		Geocoder: GeocoderConfig{
			Timeout:    10 * time.Second,
			Interval:   time.Second,
			BatchLimit: 500,
		},
		Cache: CacheConfig{
			TTL:         720 * time.Hour,
			LRUCapacity: 1024,
		},
		RateLimit: ratelimit.Options{Limit: 30, Window: time.Minute},
	}
}

// Load builds the config from defaults, then the optional YAML file named by
// -config, then environment, then explicitly set flags.
func Load(args []string) (ServerConfig, error) {
	cfg := defaults()

	fs := flag.NewFlagSet("tripcorridor", flag.ContinueOnError)
	path := fs.String("config", "", "YAML config file")
	dsn := fs.String("dsn", "", "MySQL DSN (env DB_DSN)")
	addr := fs.String("addr", cfg.Addr, "HTTP bind address")
	provider := fs.String("directions", cfg.Directions.Provider, "directions provider: google or line")
	migrate := fs.Bool("migrate", false, "create missing tables on start")
	if err := fs.Parse(args); err != nil {
		return ServerConfig{}, err
	}

	if *path != "" {
		data, err := os.ReadFile(*path)
		if err != nil {
			return ServerConfig{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return ServerConfig{}, fmt.Errorf("parse %s: %w", *path, err)
		}
	}

	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.MySQLDSN = v
	}
	if v := os.Getenv("DIRECTIONS_API_KEY"); v != "" {
		cfg.Directions.APIKey = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		cfg.AdminToken = v
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dsn":
			cfg.MySQLDSN = *dsn
		case "addr":
			cfg.Addr = *addr
		case "directions":
			cfg.Directions.Provider = *provider
		case "migrate":
			cfg.Migrate = *migrate
		}
	})

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// FromFlagsServer loads the config from the process arguments.
func FromFlagsServer() (ServerConfig, error) {
	return Load(os.Args[1:])
}
