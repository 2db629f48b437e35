package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"qualistock/internal/jobs"
	"qualistock/internal/service"
)

// JobQueue is the part of the job client the admin routes use.
type JobQueue interface {
	Enqueue(ctx context.Context, taskType string) (*asynq.TaskInfo, error)
	Stats() (*jobs.QueueStats, error)
}

// jobRoutes maps the URL names accepted under /admin/jobs onto task types.
var jobRoutes = map[string]string{
	"initialize-stock": jobs.TaskStockInitialize,
	"expiration-scan":  jobs.TaskExpirationScan,
}

type AdminHandler struct {
	seeder      service.SeedService
	stock       service.StockService
	queue       JobQueue
	seedEnabled bool
	logger      *slog.Logger
}

func NewAdminHandler(seeder service.SeedService, stock service.StockService, queue JobQueue, seedEnabled bool, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{seeder: seeder, stock: stock, queue: queue, seedEnabled: seedEnabled, logger: logger}
}

// InitTestData fills an empty database with demo data
// POST /api/v1/init-test-data
func (h *AdminHandler) InitTestData(c *fiber.Ctx) error {
	if !h.seedEnabled {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not Found"})
	}
	result, err := h.seeder.InitTestData(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusOK
	if result.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(result)
}

// EnqueueJob submits a background job. Without a queue, stock
// initialisation runs inline.
// POST /api/v1/admin/jobs/:job
func (h *AdminHandler) EnqueueJob(c *fiber.Ctx) error {
	taskType, ok := jobRoutes[c.Params("job")]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown job '" + c.Params("job") + "'"})
	}

	if h.queue == nil {
		if taskType != jobs.TaskStockInitialize {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Job queue is not configured"})
		}
		created, err := h.stock.InitializeMissing(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"task": taskType, "status": "completed", "created": created})
	}

	info, err := h.queue.Enqueue(c.UserContext(), taskType)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Job is already queued"})
		}
		h.logger.Error("enqueue job", slog.String("task", taskType), slog.Any("error", err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Job queue unavailable"})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"task":   taskType,
		"id":     info.ID,
		"queue":  info.Queue,
		"status": "queued",
	})
}

// JobsHealth reports the default queue
// GET /api/v1/admin/jobs/health
func (h *AdminHandler) JobsHealth(c *fiber.Ctx) error {
	if h.queue == nil {
		return c.JSON(jobs.QueueStats{Queue: jobs.QueueDefault})
	}
	stats, err := h.queue.Stats()
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Job queue unavailable"})
	}
	return c.JSON(stats)
}
