package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"qualistock/internal/service"
)

const maxMovementDays = 90

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetStockMovement returns stock movement data for charts
// Query params: days (default 7, max 90)
func (h *DashboardHandler) GetStockMovement(c *fiber.Ctx) error {
	daysStr := c.Query("days", "7")
	days, err := strconv.Atoi(daysStr)
	if err != nil || days <= 0 {
		days = 7
	}
	if days > maxMovementDays {
		days = maxMovementDays
	}

	data, err := h.service.GetStockMovement(c.UserContext(), days)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"period": days,
		"data":   data,
	})
}

// GetDashboardStats returns overview statistics
func (h *DashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.GetDashboardStats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(stats)
}

// GetQualityIssues returns the latest POOR and CRITICAL checks
func (h *DashboardHandler) GetQualityIssues(c *fiber.Ctx) error {
	issues, err := h.service.QualityIssues(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(issues)
}

// GetExpiringSoon returns the next items to expire
func (h *DashboardHandler) GetExpiringSoon(c *fiber.Ctx) error {
	items, err := h.service.ExpiringSoon(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// GetLowStock returns the lowest stock items below the threshold
func (h *DashboardHandler) GetLowStock(c *fiber.Ctx) error {
	items, err := h.service.LowStock(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}
