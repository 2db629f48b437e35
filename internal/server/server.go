// Package server assembles the fiber application: middleware, routes and
// error rendering.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"qualistock/internal/config"
	"qualistock/internal/handler"
	"qualistock/internal/middleware"
	"qualistock/internal/model"
	"qualistock/internal/observability"
	"qualistock/internal/service"
	"qualistock/internal/ws"
)

// Services are the domain services the routes call.
type Services struct {
	Auth       service.AuthService
	Users      service.UserService
	Categories service.CategoryService
	Products   service.ProductService
	Stock      service.StockService
	Quality    service.QualityService
	Forecasts  service.ForecastService
	Expiration service.ExpirationService
	Dashboard  service.DashboardService
	Seeder     service.SeedService
}

// Options collects everything New needs. Metrics, Jobs and Ready are optional.
type Options struct {
	Config   *config.Config
	Logger   *slog.Logger
	Services Services
	Hub      *ws.Hub
	Metrics  *observability.Metrics
	Jobs     handler.JobQueue
	// Ready reports whether backing stores answer; it feeds /health.
	Ready func(ctx context.Context) error
	// AccessLog toggles the fiber request logger.
	AccessLog bool
}

// New builds the application with every route mounted.
func New(opts Options) *fiber.App {
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ErrorHandler: errorHandler(log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	})

	if opts.AccessLog {
		app.Use(logger.New())
	}
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.SecureHeaders(cfg.IsProduction()))
	app.Use(opts.Metrics.Middleware())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Welcome to QualiStock API"})
	})
	app.Get("/health", health(opts.Ready))
	app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))

	if opts.Hub != nil {
		app.Use("/ws", handler.RequireUpgrade)
		app.Get("/ws", handler.Live(opts.Hub))
	}

	mountAPI(app.Group(cfg.APIPrefix), opts, log)
	return app
}

func mountAPI(api fiber.Router, opts Options, log *slog.Logger) {
	svc := opts.Services
	cfg := opts.Config

	authHandler := handler.NewAuthHandler(svc.Auth)
	userHandler := handler.NewUserHandler(svc.Users)
	roleHandler := handler.NewRoleHandler(svc.Users)
	categoryHandler := handler.NewCategoryHandler(svc.Categories)
	productHandler := handler.NewProductHandler(svc.Products)
	invHandler := handler.NewInventoryHandler(svc.Stock)
	qualityHandler := handler.NewQualityHandler(svc.Quality)
	forecastHandler := handler.NewForecastHandler(svc.Forecasts)
	expirationHandler := handler.NewExpirationHandler(svc.Expiration)
	dashHandler := handler.NewDashboardHandler(svc.Dashboard)
	adminHandler := handler.NewAdminHandler(svc.Seeder, svc.Stock, opts.Jobs, cfg.SeedEndpointEnabled, log)

	// ============ PUBLIC ROUTES ============
	limit := middleware.RateLimitByIP(cfg.AuthRateLimit, time.Minute)
	api.Post("/token", limit, authHandler.Login)
	api.Post("/users/login", limit, authHandler.Login)
	api.Post("/users/register", limit, middleware.OptionalAuth(svc.Auth), authHandler.Register)
	api.Post("/init-test-data", limit, adminHandler.InitTestData)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(svc.Auth))
	catalogWrite := middleware.RequirePrivilege(model.PrivCatalogWrite)
	stockWrite := middleware.RequirePrivilege(model.PrivStockWrite)
	qualityWrite := middleware.RequirePrivilege(model.PrivQualityWrite)
	forecastWrite := middleware.RequirePrivilege(model.PrivForecastWrite)
	trendWrite := middleware.RequireAnyPrivilege(model.PrivForecastWrite, model.PrivCatalogWrite)
	admin := middleware.RequirePrivilege(model.PrivSystemAdmin)

	// Users
	protected.Get("/users", userHandler.GetUsers)
	protected.Get("/users/me", authHandler.Me)
	protected.Post("/users/me/password", authHandler.ChangePassword)
	protected.Get("/users/:id", userHandler.GetUser)
	protected.Put("/users/:id", userHandler.UpdateUser)
	protected.Delete("/users/:id", userHandler.DeleteUser)
	protected.Get("/roles", roleHandler.GetRoles)
	protected.Get("/privileges", roleHandler.GetPrivileges)

	// Categories
	protected.Get("/categories", categoryHandler.GetCategories)
	protected.Post("/categories", catalogWrite, categoryHandler.CreateCategory)
	protected.Get("/categories/:id", categoryHandler.GetCategory)
	protected.Put("/categories/:id", catalogWrite, categoryHandler.UpdateCategory)
	protected.Delete("/categories/:id", catalogWrite, categoryHandler.DeleteCategory)
	protected.Get("/categories/:id/products", categoryHandler.GetCategoryProducts)

	// Products, layered and legacy
	for _, prefix := range []string{"/products", "/stock/products"} {
		protected.Get(prefix, productHandler.GetProducts)
		protected.Post(prefix, catalogWrite, productHandler.CreateProduct)
		protected.Get(prefix+"/:id", productHandler.GetProduct)
		protected.Put(prefix+"/:id", catalogWrite, productHandler.UpdateProduct)
		protected.Delete(prefix+"/:id", catalogWrite, productHandler.DeleteProduct)
	}
	protected.Get("/products/:id/stock", productHandler.GetProductStock)

	// Stock items
	protected.Get("/stock-items/analytics/expiring-soon-count", invHandler.ExpiringSoonCount)
	protected.Get("/stock-items/analytics/low-stock-count", invHandler.LowStockCount)
	protected.Get("/stock-items", invHandler.GetStockItems)
	protected.Post("/stock-items", stockWrite, invHandler.CreateStockItem)
	protected.Get("/stock-items/:id", invHandler.GetStockItem)
	protected.Put("/stock-items/:id", stockWrite, invHandler.UpdateStockItem)
	protected.Delete("/stock-items/:id", stockWrite, invHandler.DeleteStockItem)

	protected.Get("/stock/movements", invHandler.GetMovements)
	protected.Get("/stock/items", invHandler.GetStockItems)
	protected.Post("/stock/items", stockWrite, invHandler.UpsertStockItem)
	protected.Get("/stock/items/:id", invHandler.GetStockItem)
	protected.Put("/stock/items/:id", stockWrite, invHandler.UpdateStockItem)
	protected.Delete("/stock/items/:id", stockWrite, invHandler.ClearStockItem)
	protected.Post("/stock/products/:id/set-zero-stock", stockWrite, invHandler.SetZeroStock)

	// Quality
	protected.Get("/quality-checks/critical", qualityHandler.GetCritical)
	protected.Get("/quality-checks/statistics", qualityHandler.GetStatistics)
	protected.Get("/quality-checks/product/:id", qualityHandler.GetByProduct)
	protected.Get("/quality-checks/batch/:batch", qualityHandler.GetByBatch)
	protected.Get("/quality-checks/status/:status", qualityHandler.GetByStatus)
	protected.Get("/quality/stats/by-status", qualityHandler.GetStatsByStatus)
	protected.Get("/quality/stats/issues-by-product", qualityHandler.GetIssuesByProduct)
	for _, prefix := range []string{"/quality-checks", "/quality/checks"} {
		protected.Get(prefix, qualityHandler.GetChecks)
		protected.Post(prefix, qualityWrite, qualityHandler.CreateCheck)
		protected.Get(prefix+"/:id", qualityHandler.GetCheck)
		protected.Put(prefix+"/:id", qualityWrite, qualityHandler.UpdateCheck)
		protected.Delete(prefix+"/:id", qualityWrite, qualityHandler.DeleteCheck)
	}

	// Forecasting
	protected.Get("/forecasts/product/:id", forecastHandler.GetByProduct)
	protected.Get("/forecasts/future/:days", forecastHandler.GetFuture)
	protected.Get("/forecasts/date-range", forecastHandler.GetDateRange)
	protected.Get("/forecasts/monthly", forecastHandler.GetMonthly)
	protected.Get("/forecasting/stats/top-products", forecastHandler.GetTopProducts)
	protected.Get("/forecasting/trends", forecastHandler.GetTrends)
	protected.Post("/forecasting/trends", trendWrite, forecastHandler.CreateTrend)
	for _, prefix := range []string{"/forecasts", "/forecasting/predictions"} {
		protected.Get(prefix, forecastHandler.GetForecasts)
		protected.Post(prefix, forecastWrite, forecastHandler.CreateForecast)
		protected.Get(prefix+"/:id", forecastHandler.GetForecast)
		protected.Put(prefix+"/:id", forecastWrite, forecastHandler.UpdateForecast)
		protected.Delete(prefix+"/:id", forecastWrite, forecastHandler.DeleteForecast)
	}

	// Expiration
	protected.Get("/expiration/items", expirationHandler.GetItems)
	protected.Get("/expiration/stats", expirationHandler.GetStats)
	protected.Get("/expiration/critical", expirationHandler.GetCritical)
	protected.Get("/expiration/report.pdf", expirationHandler.GetReportPDF)
	protected.Get("/expiration/report.csv", expirationHandler.GetReportCSV)

	// Dashboard
	protected.Get("/dashboard/stats", dashHandler.GetDashboardStats)
	protected.Get("/dashboard/quality-issues", dashHandler.GetQualityIssues)
	protected.Get("/dashboard/expiring-soon", dashHandler.GetExpiringSoon)
	protected.Get("/dashboard/low-stock", dashHandler.GetLowStock)
	protected.Get("/dashboard/stock-movement", dashHandler.GetStockMovement)

	// Admin
	protected.Get("/admin/jobs/health", admin, adminHandler.JobsHealth)
	protected.Post("/admin/jobs/:job", admin, adminHandler.EnqueueJob)
}

// errorHandler renders every error that escapes a handler as {"error": ...}.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		log.Error("unhandled error",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}
}

func health(ready func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
