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

	httpapi "github.com/Sebastian-Sole/scuba-suit/internal/api/http"
	"github.com/Sebastian-Sole/scuba-suit/internal/cache"
	"github.com/Sebastian-Sole/scuba-suit/internal/config"
	"github.com/Sebastian-Sole/scuba-suit/internal/geocode"
	"github.com/Sebastian-Sole/scuba-suit/internal/scheduler"
	"github.com/Sebastian-Sole/scuba-suit/internal/sst"
	"github.com/Sebastian-Sole/scuba-suit/internal/sst/upstream"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound marine API calls. Per-call deadlines
	// are applied by the client via context; this is a backstop.
	httpClient := &http.Client{
		Timeout: cfg.UpstreamTimeout + 2*time.Second,
	}

	// Process-scoped caches, one per payload type.
	pointCache := cache.New[sst.PointPayload](cfg.SweepThreshold)
	gridCache := cache.New[sst.GridPayload](cfg.SweepThreshold)
	geocodeCache := cache.New[geocode.Result](cfg.SweepThreshold)

	// Upstream marine client with resilience (backoff + circuit breaker).
	marine := upstream.NewClient(httpClient, cfg.UpstreamBaseURL, cfg.UpstreamTimeout)

	// Core orchestrator composing cache, date ranges, fetches and stats.
	service := sst.NewService(marine, pointCache, gridCache, sst.Options{
		PointTTL:      cfg.PointTTL,
		GridTTL:       cfg.GridTTL,
		MaxConcurrent: cfg.FetchConcurrency,
		NudgeAttempts: cfg.NudgeAttempts,
		GridMaxPoints: cfg.GridMaxPoints,
	})

	geo := geocode.NewClient(cfg.GeocoderAPIKey, geocodeCache, cfg.GeocodeTTL)

	// Background sweep reclaiming expired cache entries.
	sched := scheduler.New([]scheduler.NamedSweeper{
		{Name: "point", Cache: pointCache},
		{Name: "grid", Cache: gridCache},
		{Name: "geocode", Cache: geocodeCache},
	}, cfg.SweepInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "scuba-suit",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
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
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "scuba-suit",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, geo, httpapi.Options{
		DefaultYears:        cfg.DefaultYears,
		DefaultForecastDays: cfg.DefaultForecastDays,
		PointTTL:            cfg.PointTTL,
		GridTTL:             cfg.GridTTL,
		GeocodeTTL:          cfg.GeocodeTTL,
	})

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
}
