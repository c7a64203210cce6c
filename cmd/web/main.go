package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/config"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/middleware"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/observability"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/pipelines"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/server"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/services"
)

func pipelineSettings(cfg config.AnalysisConfig) (pipelines.Settings, error) {
	start, err := cfg.TrendStart()
	if err != nil {
		return pipelines.Settings{}, err
	}
	return pipelines.Settings{
		TopCategories:      cfg.TopCategories,
		RegionalCategories: cfg.RegionalCategories,
		DeliveryTrendStart: start,
		ValueCap:           cfg.ValueCap,
		ValueBins:          cfg.ValueBins,
	}, nil
}

func newHandler(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger) http.Handler {
	srv := server.NewServer(analytics, logger)
	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"csv_file", cfg.Data.CSVFile,
		"analysis", cfg.Analysis,
	)

	settings, err := pipelineSettings(cfg.Analysis)
	if err != nil {
		logger.Error("invalid analysis settings", "error", err)
		os.Exit(1)
	}

	analytics := services.NewAnalytics(
		services.WithLogger(logger),
		services.WithCacheDir(cfg.Data.CacheDir),
		services.WithWorkers(cfg.Analysis.Workers),
		services.WithSettings(settings),
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
	defer cancel()

	start := time.Now()
	if err := analytics.LoadFromCSV(ctx, cfg.Data.CSVFile); err != nil {
		logger.Error("failed to load CSV data", "error", err)
		os.Exit(1)
	}
	logger.Info("CSV data loaded successfully", "duration", time.Since(start))
	for _, w := range analytics.Warnings() {
		logger.Warn("dataset diagnostic", "message", w)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down analytics service", "stats", analytics.Stats())
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
