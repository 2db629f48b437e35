// Package app wires configuration, stores and services for the binaries
// under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"qualistock/internal/config"
	"qualistock/internal/model"
	"qualistock/internal/repository"
	"qualistock/internal/seed"
	"qualistock/internal/server"
	"qualistock/internal/service"
	"qualistock/pkg/database"
	"qualistock/pkg/jwt"
)

// Models lists every table AutoMigrate manages, parents first.
func Models() []interface{} {
	return []interface{}{
		&model.Privilege{},
		&model.Role{},
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.StockItem{},
		&model.StockMovement{},
		&model.QualityCheck{},
		&model.Forecast{},
		&model.MarketTrend{},
	}
}

// OpenDatabase connects with the configured driver and migrates the schema.
func OpenDatabase(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(database.Options{
		Driver:          cfg.DBDriver,
		URL:             cfg.DatabaseURL,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		Name:            cfg.DBName,
		TimeZone:        cfg.DBTimeZone,
		LogLevel:        cfg.DBLogLevel,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("database ready", slog.String("driver", cfg.DBDriver))
	return db, nil
}

// Repositories is one implementation of every store the services use.
type Repositories struct {
	Users      repository.UserRepository
	Roles      repository.RoleRepository
	Privileges repository.PrivilegeRepository
	Categories repository.CategoryRepository
	Products   repository.ProductRepository
	Stock      repository.StockItemRepository
	Movements  repository.StockMovementRepository
	Checks     repository.QualityCheckRepository
	Forecasts  repository.ForecastRepository
	Trends     repository.MarketTrendRepository

	// Atomic runs fn with repositories bound to a single transaction.
	Atomic func(ctx context.Context, fn func(Repositories) error) error
}

func GormRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Atomic: func(ctx context.Context, fn func(Repositories) error) error {
			return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				return fn(GormRepositories(tx))
			})
		},
		Users:      repository.NewUserRepo(db),
		Roles:      repository.NewRoleRepo(db),
		Privileges: repository.NewPrivilegeRepo(db),
		Categories: repository.NewCategoryRepo(db),
		Products:   repository.NewProductRepo(db),
		Stock:      repository.NewStockItemRepo(db),
		Movements:  repository.NewStockMovementRepo(db),
		Checks:     repository.NewQualityCheckRepo(db),
		Forecasts:  repository.NewForecastRepo(db),
		Trends:     repository.NewMarketTrendRepo(db),
	}
}

// Thresholds copies the stock and expiration windows out of cfg.
func Thresholds(cfg *config.Config) service.Thresholds {
	return service.Thresholds{
		LowStock:         cfg.LowStockThreshold,
		ExpiringSoonDays: cfg.ExpiringSoonDays,
		CriticalDays:     cfg.CriticalExpiryDays,
		WindowDays:       cfg.ExpirationWindowDays,
	}
}

// NewServices builds the full service set over repos.
func NewServices(cfg *config.Config, repos Repositories, deps service.Deps) (server.Services, error) {
	fixture, err := seed.Default()
	if err != nil {
		return server.Services{}, fmt.Errorf("load seed fixture: %w", err)
	}
	tokens := jwt.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	return server.Services{
		Auth:       service.NewAuthService(repos.Users, repos.Roles, tokens, deps),
		Users:      service.NewUserService(repos.Users, repos.Roles, repos.Privileges, repos.Checks, deps),
		Categories: service.NewCategoryService(repos.Categories, repos.Products, repos.Trends, deps),
		Products:   service.NewProductService(repos.Products, repos.Categories, repos.Stock, repos.Checks, repos.Forecasts, deps),
		Stock:      service.NewStockService(repos.Stock, repos.Products, repos.Movements, deps),
		Quality:    service.NewQualityService(repos.Checks, repos.Products, repos.Users, deps),
		Forecasts:  service.NewForecastService(repos.Forecasts, repos.Trends, repos.Products, repos.Categories, repos.Stock, deps),
		Expiration: service.NewExpirationService(repos.Stock, deps),
		Dashboard:  service.NewDashboardService(repos.Products, repos.Stock, repos.Checks, repos.Movements, deps),
		Seeder:     service.NewSeedService(seedRepos(repos), fixture, nil, deps),
	}, nil
}

func seedRepos(r Repositories) service.SeedRepos {
	out := service.SeedRepos{
		Users:      r.Users,
		Roles:      r.Roles,
		Privileges: r.Privileges,
		Categories: r.Categories,
		Products:   r.Products,
		Stock:      r.Stock,
		Checks:     r.Checks,
		Forecasts:  r.Forecasts,
	}
	if r.Atomic != nil {
		out.Atomic = func(ctx context.Context, fn func(service.SeedRepos) error) error {
			return r.Atomic(ctx, func(tx Repositories) error {
				return fn(seedRepos(tx))
			})
		}
	}
	return out
}

// NewRedis returns a client for the cache, relay and job queue.
func NewRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// QueueRedis is the asynq view of the same Redis settings.
func QueueRedis(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// Ping checks the database and Redis. A nil client is skipped.
func Ping(ctx context.Context, db *gorm.DB, client *redis.Client) error {
	var errs []error
	if db != nil {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if client != nil {
		if err := client.Ping(ctx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
