package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds everything the pipeline consumes as constructor parameters:
// upstream coordinates, quota policy, cache placement, and smoothing width.
type AppConfig struct {
	APIBase  string
	APIKey   string
	Region   string
	Location string

	// Quotas enforced by the client. RequestsPerDay is process-lifetime only.
	RequestsPerMinute int
	RequestsPerDay    int

	// CacheBackend selects "file" (one gzip entry per date) or "sqlite".
	CacheDir     string
	CacheBackend string

	// SmoothingDays is the local-regression window width for plotting series.
	SmoothingDays int

	// Optional meter-reading CSVs exposed through the usage endpoint.
	ElectricFile string
	GasFile      string

	HTTPTimeout      time.Duration
	PrefetchInterval time.Duration
	Port             string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.APIBase = getenvDefault("WEATHER_API_BASE", "http://api.wunderground.com/api")
	cfg.APIKey = os.Getenv("WEATHER_API_KEY")
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY is required")
	}
	cfg.Region = getenvDefault("WEATHER_REGION", "MA")
	cfg.Location = getenvDefault("WEATHER_LOCATION", "Bedford")

	cfg.RequestsPerMinute = getenvInt("REQUESTS_PER_MINUTE", 10)
	cfg.RequestsPerDay = getenvInt("REQUESTS_PER_DAY", 500)
	if cfg.RequestsPerMinute <= 0 || cfg.RequestsPerDay <= 0 {
		return nil, fmt.Errorf("request quotas must be positive")
	}

	cfg.CacheDir = getenvDefault("CACHE_DIR", "temp_data")
	cfg.CacheBackend = getenvDefault("CACHE_BACKEND", "file")
	if cfg.CacheBackend != "file" && cfg.CacheBackend != "sqlite" {
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q: use file or sqlite", cfg.CacheBackend)
	}

	cfg.SmoothingDays = getenvInt("SMOOTHING_DAYS", 14)
	if cfg.SmoothingDays < 1 {
		return nil, fmt.Errorf("SMOOTHING_DAYS must be at least 1")
	}

	cfg.ElectricFile = os.Getenv("ELECTRIC_FILE")
	cfg.GasFile = os.Getenv("GAS_FILE")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	prefetchStr := getenvDefault("PREFETCH_INTERVAL", "24h")
	prefetch, err := time.ParseDuration(prefetchStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PREFETCH_INTERVAL: %w", err)
	}
	cfg.PrefetchInterval = prefetch

	cfg.Port = getenvDefault("PORT", "8080")

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
