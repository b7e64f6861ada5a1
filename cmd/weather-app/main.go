package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/camara12-arth/weather-app/internal/api/http"
	"github.com/camara12-arth/weather-app/internal/config"
	"github.com/camara12-arth/weather-app/internal/scheduler"
	"github.com/camara12-arth/weather-app/internal/search"
	"github.com/camara12-arth/weather-app/internal/store"
	"github.com/camara12-arth/weather-app/internal/weather"
	"github.com/camara12-arth/weather-app/internal/weather/providers"
)

func main() {
	// Load configuration (reads .env when present).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	httpCfg := providers.DefaultHTTPConfig(httpClient, cfg.HTTPMaxRetries)

	// Providers with resilience (backoff + circuit breaker). One instance per
	// upstream so geocoding and forecasts share a breaker.
	openWeather := providers.NewOpenWeatherProvider(httpCfg, cfg.OpenWeatherAPIKey, cfg.ForecastUnits, cfg.ForecastLang)
	openMeteo := providers.NewOpenMeteoProvider(httpCfg, cfg.ForecastLang)
	weatherAPI := providers.NewWeatherAPIProvider(httpCfg, cfg.WeatherAPIKey, cfg.ForecastLang)

	var geocoders []weather.Geocoder
	for _, name := range cfg.Geocoders {
		var g weather.Geocoder
		switch name {
		case "openweather":
			g = openWeather
		case "openmeteo":
			g = openMeteo
		case "weatherapi":
			g = weatherAPI
		case "google":
			g = providers.NewGoogleGeocoder(cfg.GoogleAPIKey)
		default:
			log.Printf("WARN: unknown geocoder %q ignored", name)
			continue
		}
		geocoders = append(geocoders, providers.NewRateLimitedGeocoder(g, cfg.GeocoderRPS, cfg.GeocoderBurst))
	}
	if len(geocoders) == 0 {
		log.Fatalf("no usable geocoder in GEOCODERS=%v", cfg.Geocoders)
	}

	var forecasts weather.ForecastFetcher
	switch cfg.ForecastProvider {
	case "openweather":
		forecasts = openWeather
	case "openmeteo":
		forecasts = openMeteo
	case "weatherapi":
		forecasts = weatherAPI
	default:
		log.Fatalf("unknown FORECAST_PROVIDER %q", cfg.ForecastProvider)
	}

	// Core service fronting the providers.
	service := weather.NewService(geocoders, forecasts, cfg.ForecastWindow)

	// In-memory session registry with configured retention.
	sessions := store.NewSessionStore(cfg.SessionMax, cfg.SessionIdleTTL)

	// Scheduler that periodically reaps idle sessions.
	sched := scheduler.New(sessions, cfg.SessionSweepInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-app",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Long polls hold the response for up to a minute.
		WriteTimeout: 75 * time.Second,
		ErrorHandler: httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-app",
		})
	})

	// API routes.
	handler := httpapi.NewHandler(service, sessions, search.Config{
		DebounceDelay:   cfg.DebounceDelay,
		SuggestionLimit: cfg.SuggestionLimit,
		ForecastWindow:  cfg.ForecastWindow,
	})
	httpapi.RegisterRoutes(app, handler)

	log.Printf("INFO: geocoders=%v forecast=%s listening on :%s", cfg.Geocoders, forecasts.Name(), cfg.Port)

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	sessions.CloseAll()
}
