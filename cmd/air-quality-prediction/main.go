package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlog "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/i474232898/air-quality-prediction/internal/airq"
	"github.com/i474232898/air-quality-prediction/internal/airq/providers"
	httpapi "github.com/i474232898/air-quality-prediction/internal/api/http"
	"github.com/i474232898/air-quality-prediction/internal/collector"
	"github.com/i474232898/air-quality-prediction/internal/config"
	"github.com/i474232898/air-quality-prediction/internal/logger"
	"github.com/i474232898/air-quality-prediction/internal/ml"
	"github.com/i474232898/air-quality-prediction/internal/scheduler"
	"github.com/i474232898/air-quality-prediction/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		zlog.Fatalw("failed to open store", "driver", cfg.DatabaseDriver, "error", err)
	}
	defer st.Close()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	weatherProvider := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey)
	aqiProvider := providers.NewWAQIProvider(httpClient, cfg.WAQIAPIKey)

	// The Google geocoder backs up OpenWeather's when a key is configured.
	var fallback airq.Geocoder
	if cfg.GeocoderAPIKey != "" {
		fallback = providers.NewGoogleGeocoder(cfg.GeocoderAPIKey)
	}

	predictor := ml.NewPredictor(cfg.ModelDir, weatherProvider, aqiProvider, zlog)
	coll := collector.New(st, aqiProvider, weatherProvider, zlog)
	service := airq.NewService(st, weatherProvider, aqiProvider, predictor, fallback, zlog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := coll.SeedDefaultLocations(ctx); err != nil {
		zlog.Fatalw("failed to seed locations", "error", err)
	}

	// The first collection runs synchronously so the store has data before the
	// server accepts requests; the scheduler fires one interval from now.
	startupCtx, cancelStartup := context.WithTimeout(ctx, cfg.CollectInterval)
	if _, err := coll.CollectAll(startupCtx); err != nil {
		zlog.Warnw("initial collection failed", "error", err)
	}
	cancelStartup()

	// Scheduler that periodically collects data for every active location.
	// Each run is bounded by the interval; singleton mode prevents overlap.
	sched := scheduler.New(coll.CollectAll, cfg.CollectInterval, cfg.CollectInterval, zlog)
	if err := sched.Start(); err != nil {
		zlog.Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "air-quality-prediction",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(requestid.New())
	app.Use(fiberlog.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":            "ok",
			"service":           "air-quality-prediction",
			"scheduler_running": sched.Running(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Errorw("fiber server stopped", "error", err)
		}
	}()
	zlog.Infow("server listening", "port", cfg.Port, "driver", cfg.DatabaseDriver)

	// Wait for termination signal
	<-ctx.Done()
	zlog.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Errorw("error during shutdown", "error", err)
	}
}
