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
	Port  string
	Debug bool

	// Storage backend: "sqlite", "postgres" or "memory".
	DatabaseDriver string
	DatabaseDSN    string

	OpenWeatherAPIKey string
	WAQIAPIKey        string

	// Optional Google Maps key; enables the geocoding fallback.
	GeocoderAPIKey string

	// CollectInterval controls how often we collect data for each location.
	CollectInterval time.Duration

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration

	// ModelDir is where trained model artifacts live.
	ModelDir string

	// TrainingWindowDays is how far back training pulls observations.
	TrainingWindowDays int
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WAQIAPIKey = os.Getenv("WAQI_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.DatabaseDriver = getenvDefault("DATABASE_DRIVER", "sqlite")
	switch cfg.DatabaseDriver {
	case "sqlite", "postgres", "memory":
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	cfg.DatabaseDSN = getenvDefault("DATABASE_DSN", "air_quality.db")

	// Collection interval: default 1 hour.
	intervalStr := getenvDefault("COLLECT_INTERVAL", "1h")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid COLLECT_INTERVAL: %w", err)
	}
	cfg.CollectInterval = interval

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.ModelDir = getenvDefault("MODEL_DIR", "./models")

	cfg.TrainingWindowDays = getenvInt("TRAINING_WINDOW_DAYS", 90)
	if cfg.TrainingWindowDays <= 0 {
		return nil, fmt.Errorf("TRAINING_WINDOW_DAYS must be positive")
	}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.Debug = getenvBool("DEBUG", false)

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

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
