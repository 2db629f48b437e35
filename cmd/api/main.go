package main

import (
	"context"
	"log"
	"log/slog"
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
	"qualistock/internal/server"
	"qualistock/internal/service"
	"qualistock/internal/ws"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Setup database and redis
	db, err := app.OpenDatabase(cfg, logger)
	if err != nil {
		logger.Error("database unavailable", slog.Any("error", err))
		os.Exit(1)
	}
	rdb := app.NewRedis(cfg)
	defer rdb.Close()

	// 3. WebSocket hub, fed locally and by the worker through the relay.
	// It is stopped after Fiber has shut down.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := ws.NewHub(logger)
	go hub.Run(hubCtx)
	relay := ws.NewRelay(rdb, cfg.AlertChannel, logger)
	go forwardAlerts(ctx, relay, hub, logger)

	// 4. Services
	metrics := observability.NewMetrics()
	analytics := cache.New(rdb, cfg.CacheTTL)
	repos := app.GormRepositories(db)
	svc, err := app.NewServices(cfg, repos, service.Deps{
		Notifier:   hub,
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
	if err := svc.Seeder.EnsureRoles(ctx); err != nil {
		logger.Warn("seed roles failed", slog.Any("error", err))
	}

	queue := jobs.NewClient(app.QueueRedis(cfg))
	defer queue.Close()

	// 5. Fiber
	fiberApp := server.New(server.Options{
		Config:   cfg,
		Logger:   logger,
		Services: svc,
		Hub:      hub,
		Metrics:  metrics,
		Jobs:     queue,
		Ready: func(ctx context.Context) error {
			return app.Ping(ctx, db, rdb)
		},
		AccessLog: true,
	})

	go func() {
		if err := fiberApp.Listen(":" + cfg.Port); err != nil {
			logger.Error("listen", slog.Any("error", err))
			stop()
		}
	}()
	logger.Info("api started", slog.String("port", cfg.Port), slog.String("env", cfg.AppEnv))

	// 6. Graceful shutdown
	<-ctx.Done()
	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}
	stopHub()
	select {
	case <-hub.Done():
	case <-shutdownCtx.Done():
	}
	logger.Info("server exited")
}

// forwardAlerts retries the relay subscription until it is confirmed.
func forwardAlerts(ctx context.Context, relay *ws.Relay, hub *ws.Hub, logger *slog.Logger) {
	for {
		err := relay.Forward(ctx, hub)
		if err == nil || ctx.Err() != nil {
			return
		}
		logger.Warn("alert relay unavailable, retrying", slog.Any("error", err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}
