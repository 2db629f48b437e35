package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qualistock/internal/app"
	"qualistock/internal/cache"
	"qualistock/internal/config"
	"qualistock/internal/jobs"
	"qualistock/internal/logging"
	"qualistock/internal/observability"
	"qualistock/internal/service"
	"qualistock/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg).With(slog.String("component", "worker"))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := app.OpenDatabase(cfg, logger)
	if err != nil {
		logger.Error("database unavailable", slog.Any("error", err))
		os.Exit(1)
	}
	rdb := app.NewRedis(cfg)
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	// Events raised here reach browsers through the API's relay subscription.
	relay := ws.NewRelay(rdb, cfg.AlertChannel, logger)
	metrics := observability.NewMetrics()
	analytics := cache.New(rdb, cfg.CacheTTL)

	svc, err := app.NewServices(cfg, app.GormRepositories(db), service.Deps{
		Notifier:   jobs.RelayNotifier{Publisher: relay, Logger: logger},
		Cache:      analytics,
		Analytics:  analytics,
		Alerts:     metrics,
		Logger:     logger,
		Thresholds: app.Thresholds(cfg),
	})
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		os.Exit(1)
	}

	handlers := &jobs.Handlers{
		Stock:      svc.Stock,
		Expiration: svc.Expiration,
		Dashboard:  svc.Dashboard,
		Forecasts:  svc.Forecasts,
		Cache:      analytics,
		Publisher:  relay,
		Gauge:      metrics,
		Metrics:    observability.NewJobMetrics(metrics.Registerer()),
		Logger:     logger,
	}
	schedule, err := jobs.Schedule(cfg.StockInitCron, cfg.ExpirationScanCron, cfg.CacheWarmupCron)
	if err != nil {
		logger.Error("build schedule", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   app.QueueRedis(cfg),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers:    handlers.Registrations(),
		Cron:        schedule,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		go serveMetrics(ctx, cfg.WorkerMetricsAddr, metrics.Handler(), logger)
	}

	logger.Info("worker started", slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker exited")
}

func serveMetrics(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("worker metrics listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics server", slog.Any("error", err))
	}
}
