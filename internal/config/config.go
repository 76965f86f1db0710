package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// Outbound marine-weather provider.
	UpstreamBaseURL string        // empty selects the production Open-Meteo marine endpoint
	UpstreamTimeout time.Duration // per-call timeout, including retries

	// Orchestrator tuning.
	FetchConcurrency int // cap on concurrent per-date fetches within one request
	NudgeAttempts    int // spatial retries for forecast-range fetches
	GridMaxPoints    int // hard cap on grid lattice size

	// Cache TTLs and sweep.
	PointTTL       time.Duration
	GridTTL        time.Duration
	GeocodeTTL     time.Duration
	SweepThreshold int           // cache size past which writes trigger a sweep
	SweepInterval  time.Duration // periodic background sweep cadence

	// Defaults applied when the request omits range parameters.
	DefaultYears        int
	DefaultForecastDays int

	GeocoderAPIKey string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		UpstreamBaseURL: os.Getenv("SST_UPSTREAM_URL"),
		GeocoderAPIKey:  os.Getenv("GEOCODER_API_KEY"),
		Port:            getenvDefault("PORT", "8080"),
	}

	var err error
	if cfg.UpstreamTimeout, err = getenvDuration("SST_UPSTREAM_TIMEOUT", "8s"); err != nil {
		return nil, err
	}
	if cfg.PointTTL, err = getenvDuration("POINT_CACHE_TTL", "1800s"); err != nil {
		return nil, err
	}
	if cfg.GridTTL, err = getenvDuration("GRID_CACHE_TTL", "900s"); err != nil {
		return nil, err
	}
	if cfg.GeocodeTTL, err = getenvDuration("GEOCODE_CACHE_TTL", "86400s"); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getenvDuration("CACHE_SWEEP_INTERVAL", "10m"); err != nil {
		return nil, err
	}

	cfg.FetchConcurrency = getenvInt("SST_FETCH_CONCURRENCY", 8)
	cfg.NudgeAttempts = getenvInt("SST_NUDGE_ATTEMPTS", 3)
	cfg.GridMaxPoints = getenvInt("GRID_MAX_POINTS", 1000)
	cfg.SweepThreshold = getenvInt("CACHE_SWEEP_THRESHOLD", 200)
	cfg.DefaultYears = getenvInt("DEFAULT_HISTORICAL_YEARS", 3)
	cfg.DefaultForecastDays = getenvInt("DEFAULT_FORECAST_DAYS", 2)

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
