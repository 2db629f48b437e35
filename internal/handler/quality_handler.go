package handler

import (
	"github.com/gofiber/fiber/v2"

	"qualistock/internal/service"
)

type QualityHandler struct {
	service service.QualityService
}

func NewQualityHandler(s service.QualityService) *QualityHandler {
	return &QualityHandler{service: s}
}

// CreateCheck records a quality check. POOR and CRITICAL raise an alert.
// POST /api/v1/quality-checks
func (h *QualityHandler) CreateCheck(c *fiber.Ctx) error {
	var req service.QualityCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	check, err := h.service.Create(c.UserContext(), actor(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(check)
}

// GetChecks lists checks, newest first
// GET /api/v1/quality-checks?status=&product_id=&batch_number=&skip=&limit=
func (h *QualityHandler) GetChecks(c *fiber.Ctx) error {
	q := newQuery(c)
	qq := service.QualityQuery{
		Status:      c.Query("status"),
		ProductID:   q.id("product_id"),
		BatchNumber: c.Query("batch_number"),
		Page:        page(c),
	}
	if err := q.err(); err != nil {
		return err
	}
	checks, err := h.service.List(c.UserContext(), qq)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(checks)
}

// GetCheck returns one check
// GET /api/v1/quality-checks/:id
func (h *QualityHandler) GetCheck(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "quality check")
	if err != nil {
		return err
	}
	check, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(check)
}

// UpdateCheck changes the provided fields
// PUT /api/v1/quality-checks/:id
func (h *QualityHandler) UpdateCheck(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "quality check")
	if err != nil {
		return err
	}
	var req service.QualityCheckUpdate
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	check, err := h.service.Update(c.UserContext(), actor(c), id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(check)
}

// DeleteCheck removes a check
// DELETE /api/v1/quality-checks/:id
func (h *QualityHandler) DeleteCheck(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "quality check")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /api/v1/quality-checks/product/:id
func (h *QualityHandler) GetByProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "product")
	if err != nil {
		return err
	}
	checks, err := h.service.ByProduct(c.UserContext(), id, page(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(checks)
}

// GET /api/v1/quality-checks/batch/:batch
func (h *QualityHandler) GetByBatch(c *fiber.Ctx) error {
	checks, err := h.service.ByBatch(c.UserContext(), c.Params("batch"), page(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(checks)
}

// GET /api/v1/quality-checks/status/:status
func (h *QualityHandler) GetByStatus(c *fiber.Ctx) error {
	checks, err := h.service.ByStatus(c.UserContext(), c.Params("status"), page(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(checks)
}

// GET /api/v1/quality-checks/critical
func (h *QualityHandler) GetCritical(c *fiber.Ctx) error {
	checks, err := h.service.Critical(c.UserContext(), page(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(checks)
}

// GetStatistics returns totals and the POOR+CRITICAL issue rate
// GET /api/v1/quality-checks/statistics
func (h *QualityHandler) GetStatistics(c *fiber.Ctx) error {
	stats, err := h.service.Statistics(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// GetStatsByStatus counts checks per status, zeros included
// GET /api/v1/quality/stats/by-status
func (h *QualityHandler) GetStatsByStatus(c *fiber.Ctx) error {
	stats, err := h.service.StatsByStatus(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// GetIssuesByProduct ranks products by POOR and CRITICAL checks
// GET /api/v1/quality/stats/issues-by-product
func (h *QualityHandler) GetIssuesByProduct(c *fiber.Ctx) error {
	issues, err := h.service.IssuesByProduct(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(issues)
}
