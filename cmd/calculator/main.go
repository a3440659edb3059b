package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"refloor/internal/calculator/handlers"
	"refloor/internal/calculator/metrics"
	"refloor/internal/calculator/repository"
	"refloor/internal/calculator/service"
	"refloor/internal/calculator/store"
	"refloor/internal/common/config"
	"refloor/internal/common/logging"
	"refloor/internal/common/middleware"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ============================================================
// Calculator Service
// ============================================================

type storageBackend interface {
	ForSession(sessionID string) store.Storage
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	backend, err := openStorage(cfg, logger)
	if err != nil {
		logger.Fatal("open storage", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer backend.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	calcMetrics := metrics.New(registry)

	sessions := service.NewSessionManager(backend, logger, calcMetrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sessions.RunEviction(ctx,
		time.Duration(cfg.SessionSweepSeconds)*time.Second,
		time.Duration(cfg.SessionIdleMinutes)*time.Minute)

	calculatorHandler := handlers.NewCalculatorHandler(sessions, logger)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Refloor Calculator",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger(logger))
	app.Use(middleware.CORS(cfg.CORSOrigins))

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", handlers.LivenessProbe)
	app.Get("/health/ready", handlers.ReadinessProbe(sessions))
	app.Get("/health/startup", handlers.StartupProbe)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// ============================================================
	// Calculator Routes
	// ============================================================

	handlers.Register(app.Group("/api/v1"), calculatorHandler)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("starting calculator service",
		zap.String("addr", addr),
		zap.String("env", cfg.Environment),
		zap.String("storage", cfg.StorageBackend))

	go func() {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	if err := app.Listen(addr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}

func openStorage(cfg *config.Config, logger *zap.Logger) (storageBackend, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := repository.OpenSQLite(ctx, cfg.DBPath, logger)
		if err != nil {
			return nil, err
		}
		repo := repository.NewSQLite(db)
		if err := repo.Init(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("init db: %w", err)
		}
		return repo, nil
	case config.BackendFile:
		fs := repository.NewFileStorage(cfg.DataDir)
		if err := fs.Ping(context.Background()); err != nil {
			return nil, err
		}
		return fs, nil
	case config.BackendMemory:
		return repository.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
