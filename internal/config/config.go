package config

import (
	"fmt"
	"github.com/joho/godotenv"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	OpenWeatherAPIKey string
	WeatherAPIKey     string
	GoogleAPIKey      string

	// Geocoders are tried in order for suggestion lookups.
	Geocoders        []string
	ForecastProvider string
	ForecastUnits    string
	ForecastLang     string

	// Session behaviour.
	DebounceDelay   time.Duration
	SuggestionLimit int
	ForecastWindow  int

	// Outbound HTTP.
	HTTPTimeout    time.Duration
	HTTPMaxRetries int
	GeocoderRPS    float64
	GeocoderBurst  int

	// In-memory session registry retention.
	SessionIdleTTL       time.Duration // sessions unused for longer are reaped (0 = never)
	SessionMax           int           // oldest sessions are evicted beyond this (0 = unlimited)
	SessionSweepInterval time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current process environment.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_GEOCODING_API_KEY")

	cfg.Geocoders = splitList(getenvDefault("GEOCODERS", "openweather,openmeteo"))
	if len(cfg.Geocoders) == 0 {
		return nil, fmt.Errorf("GEOCODERS must name at least one geocoder")
	}
	cfg.ForecastProvider = strings.ToLower(strings.TrimSpace(getenvDefault("FORECAST_PROVIDER", "openweather")))
	cfg.ForecastUnits = getenvDefault("FORECAST_UNITS", "metric")
	cfg.ForecastLang = getenvDefault("FORECAST_LANG", "fr")

	var err error
	if cfg.DebounceDelay, err = getenvDuration("DEBOUNCE_DELAY", 600*time.Millisecond); err != nil {
		return nil, err
	}
	cfg.SuggestionLimit = getenvInt("SUGGESTION_LIMIT", 5)
	cfg.ForecastWindow = getenvInt("FORECAST_WINDOW", 16)

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	cfg.HTTPMaxRetries = getenvInt("HTTP_MAX_RETRIES", 0)
	cfg.GeocoderRPS = getenvFloat("GEOCODER_RPS", 1)
	// A zero limit never refills, so every lookup after the first burst would fail.
	if cfg.GeocoderRPS <= 0 {
		return nil, fmt.Errorf("invalid GEOCODER_RPS: must be positive, got %g", cfg.GeocoderRPS)
	}
	cfg.GeocoderBurst = getenvInt("GEOCODER_BURST", 5)

	if cfg.SessionIdleTTL, err = getenvDuration("SESSION_IDLE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	cfg.SessionMax = getenvInt("SESSION_MAX", 1000)
	if cfg.SessionSweepInterval, err = getenvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
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
		log.Printf("WARN: invalid %s=%q, using %d", key, v, def)
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
		log.Printf("WARN: invalid %s=%q, using %g", key, v, def)
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
