package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/clieb/utility-stats/internal/api/http"
	"github.com/clieb/utility-stats/internal/config"
	"github.com/clieb/utility-stats/internal/measurement"
	"github.com/clieb/utility-stats/internal/scheduler"
	"github.com/clieb/utility-stats/internal/store"
	"github.com/clieb/utility-stats/internal/weather"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound upstream calls. The timeout keeps a
	// stuck upstream from blocking a fetch indefinitely; a timeout counts as
	// a retryable fetch failure.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Durable by-date cache.
	var cache weather.CacheStore
	switch cfg.CacheBackend {
	case "sqlite":
		sqlStore, err := store.NewSQLStore(filepath.Join(cfg.CacheDir, "db.sqlite"))
		if err != nil {
			log.Fatalf("failed to open sqlite cache: %v", err)
		}
		defer sqlStore.Close()
		cache = sqlStore
	default:
		fileStore, err := store.NewFileStore(cfg.CacheDir)
		if err != nil {
			log.Fatalf("failed to open file cache: %v", err)
		}
		cache = fileStore
	}

	// Upstream client with quota enforcement and retries, and the in-memory
	// temperature tier on top of it.
	client := weather.NewClient(httpClient, cache, weather.ClientConfig{
		BaseURL:           cfg.APIBase,
		APIKey:            cfg.APIKey,
		Region:            cfg.Region,
		Location:          cfg.Location,
		RequestsPerMinute: cfg.RequestsPerMinute,
		RequestsPerDay:    cfg.RequestsPerDay,
	})
	service := weather.NewService(client)

	// Optional meter-reading series for the usage endpoint.
	utilities := make(map[string]*measurement.Series)
	if cfg.ElectricFile != "" {
		series, err := measurement.FromFile(cfg.ElectricFile, "Electricity", "kWh")
		if err != nil {
			log.Fatalf("failed to read electric data: %v", err)
		}
		log.Printf("read %d electric meter readings from %s", len(series.Data), cfg.ElectricFile)
		utilities["electric"] = series
	}
	if cfg.GasFile != "" {
		series, err := measurement.FromFile(cfg.GasFile, "Gas", "CCF")
		if err != nil {
			log.Fatalf("failed to read gas data: %v", err)
		}
		log.Printf("read %d gas meter readings from %s", len(series.Data), cfg.GasFile)
		utilities["gas"] = series
	}

	// Scheduler that keeps the cache warm with the latest completed day.
	sched := scheduler.New(client, cfg.PrefetchInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "utility-stats",
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
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "utility-stats",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Options{
		Service:       service,
		Utilities:     utilities,
		SmoothingDays: cfg.SmoothingDays,
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

