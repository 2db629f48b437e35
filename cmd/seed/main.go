package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"qualistock/internal/app"
	"qualistock/internal/cache"
	"qualistock/internal/config"
	"qualistock/internal/logging"
	"qualistock/internal/service"
)

// seed loads the demo data set into an empty database.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg)
	ctx := context.Background()

	db, err := app.OpenDatabase(cfg, logger)
	if err != nil {
		logger.Error("database unavailable", slog.Any("error", err))
		os.Exit(1)
	}

	rdb := app.NewRedis(cfg)
	defer rdb.Close()

	svc, err := app.NewServices(cfg, app.GormRepositories(db), service.Deps{
		Cache:      cache.New(rdb, cfg.CacheTTL),
		Logger:     logger,
		Thresholds: app.Thresholds(cfg),
	})
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		os.Exit(1)
	}
	if err := svc.Seeder.EnsureRoles(ctx); err != nil {
		logger.Error("seed roles", slog.Any("error", err))
		os.Exit(1)
	}
	result, err := svc.Seeder.InitTestData(ctx)
	if err != nil {
		logger.Error("seed test data", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info(result.Message,
		slog.Bool("created", result.Created),
		slog.Int("categories", result.Categories),
		slog.Int("products", result.Products),
		slog.Int("stock_items", result.StockItems),
		slog.Int("quality_checks", result.QualityChecks),
		slog.Int("forecasts", result.Forecasts))
}
