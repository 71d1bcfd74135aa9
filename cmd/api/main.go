package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/saturnino-fabrica-de-software/phiface/internal/api"
	"github.com/saturnino-fabrica-de-software/phiface/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/phiface/internal/audit"
	"github.com/saturnino-fabrica-de-software/phiface/internal/camera"
	"github.com/saturnino-fabrica-de-software/phiface/internal/config"
	"github.com/saturnino-fabrica-de-software/phiface/internal/database"
	"github.com/saturnino-fabrica-de-software/phiface/internal/detection"
	"github.com/saturnino-fabrica-de-software/phiface/internal/face"
	"github.com/saturnino-fabrica-de-software/phiface/internal/metrics"
	"github.com/saturnino-fabrica-de-software/phiface/internal/proportion"
	"github.com/saturnino-fabrica-de-software/phiface/internal/service"
	"github.com/saturnino-fabrica-de-software/phiface/internal/session"
	"github.com/saturnino-fabrica-de-software/phiface/internal/usage"
	"github.com/saturnino-fabrica-de-software/phiface/internal/ws"
)

var version = "dev"

// pipelineSampler feeds the metrics aggregator.
type pipelineSampler struct {
	*session.Manager
	*detection.ModelLoader
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting phiface API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("detector", cfg.DetectorProvider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pm, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return err
	}

	// Detector and model loading
	detector, err := face.NewDetector(cfg, audit.NewSlogLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}
	loader := detection.NewModelLoader(detector, logger, cfg.DetectionTimeout)
	loader.Start(ctx)

	orchestrator := detection.NewOrchestrator(detector, loader, detection.Config{
		MinConfidence: cfg.MinConfidence,
		InputSize:     cfg.InputSize,
		Timeout:       cfg.DetectionTimeout,
	}, logger)

	analysis := service.NewAnalysisService(orchestrator, proportion.NewScorer(cfg.GoldenRatio), logger).
		WithMetrics(pm)

	// Usage counters (optional)
	var usageService handler.UsageService
	var tracker *usage.AsyncTracker
	if cfg.UsageEnabled() {
		pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return err
		}
		defer pool.Close()

		repo := usage.NewRepository(pool)
		tracker = usage.NewAsyncTracker(repo, logger)
		analysis = analysis.WithUsageTracker(tracker)
		usageService = usage.NewService(repo)

		retention := usage.NewWorker(repo, logger, 24*time.Hour, cfg.UsageRetention)
		go retention.Run(ctx)

		logger.Info("usage counters enabled", slog.Duration("retention", cfg.UsageRetention))
	}

	// Sessions and live updates
	hub := ws.NewHub(logger)
	sessions := session.NewManager(analysis, camera.NewDeviceSource(cfg.CameraDevice), session.Config{
		TTL:         cfg.SessionTTL,
		ImageLimits: cfg.ImageLimits(),
	}, logger).
		WithNotifier(hub).
		WithMetrics(pm)

	aggregator := metrics.NewAggregator(pm, pipelineSampler{sessions, loader}, logger, 15*time.Second)
	go aggregator.Start(ctx)

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Analyzer:       analysis,
		Sessions:       sessions,
		Models:         loader,
		Hub:            hub,
		Usage:          usageService,
		Gatherer:       registry,
		MaxImageBytes:  cfg.MaxImageBytes,
		MaxImagePixels: cfg.MaxImagePixels,
		RateLimitMax:   cfg.RateLimitMax,
		Version:        version,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	aggregator.Stop()
	sessions.Close()
	if tracker != nil {
		tracker.Wait()
	}

	logger.Info("server stopped")
	return nil
}
