package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"qualistock/internal/repository"
	"qualistock/internal/service"
)

type ForecastHandler struct {
	service service.ForecastService
}

func NewForecastHandler(s service.ForecastService) *ForecastHandler {
	return &ForecastHandler{service: s}
}

// CreateForecast stores a demand prediction
// POST /api/v1/forecasts
func (h *ForecastHandler) CreateForecast(c *fiber.Ctx) error {
	var req service.ForecastRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	forecast, err := h.service.Create(c.UserContext(), actor(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(forecast)
}

// GetForecasts lists predictions by forecast date
// GET /api/v1/forecasts?product_id=&min_confidence=&start_date=&end_date=&skip=&limit=
func (h *ForecastHandler) GetForecasts(c *fiber.Ctx) error {
	q := newQuery(c)
	f := repository.ForecastFilter{
		ProductID:     q.id("product_id"),
		MinConfidence: q.decimal("min_confidence"),
		From:          q.date("start_date"),
		To:            q.date("end_date"),
		Page:          page(c),
	}
	if err := q.err(); err != nil {
		return err
	}
	forecasts, err := h.service.List(c.UserContext(), f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(forecasts)
}

// GetForecast returns one prediction
// GET /api/v1/forecasts/:id
func (h *ForecastHandler) GetForecast(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "forecast")
	if err != nil {
		return err
	}
	forecast, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(forecast)
}

// UpdateForecast changes the provided fields
// PUT /api/v1/forecasts/:id
func (h *ForecastHandler) UpdateForecast(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "forecast")
	if err != nil {
		return err
	}
	var req service.ForecastUpdate
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	forecast, err := h.service.Update(c.UserContext(), actor(c), id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(forecast)
}

// DeleteForecast removes a prediction
// DELETE /api/v1/forecasts/:id
func (h *ForecastHandler) DeleteForecast(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "forecast")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /api/v1/forecasts/product/:id
func (h *ForecastHandler) GetByProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "product")
	if err != nil {
		return err
	}
	forecasts, err := h.service.ByProduct(c.UserContext(), id, page(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(forecasts)
}

// GetFuture lists predictions for the next :days days
// GET /api/v1/forecasts/future/:days
func (h *ForecastHandler) GetFuture(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Params("days"))
	if err != nil {
		return badRequest("days must be a number")
	}
	forecasts, err := h.service.Future(c.UserContext(), days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(forecasts)
}

// GetDateRange lists predictions between start_date and end_date
// GET /api/v1/forecasts/date-range?start_date=&end_date=
func (h *ForecastHandler) GetDateRange(c *fiber.Ctx) error {
	q := newQuery(c)
	from, to := q.date("start_date"), q.date("end_date")
	if err := q.err(); err != nil {
		return err
	}
	if from == nil || to == nil {
		return badRequest("start_date and end_date are required")
	}
	forecasts, err := h.service.DateRange(c.UserContext(), *from, *to)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(forecasts)
}

// GetMonthly groups future predictions by YYYY-MM
// GET /api/v1/forecasts/monthly
func (h *ForecastHandler) GetMonthly(c *fiber.Ctx) error {
	monthly, err := h.service.Monthly(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(monthly)
}

// GetTopProducts ranks products by future predicted demand
// GET /api/v1/forecasting/stats/top-products?limit=
func (h *ForecastHandler) GetTopProducts(c *fiber.Ctx) error {
	top, err := h.service.TopProducts(c.UserContext(), c.QueryInt("limit", 10))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(top)
}

// CreateTrend records a market trend for a category
// POST /api/v1/forecasting/trends
func (h *ForecastHandler) CreateTrend(c *fiber.Ctx) error {
	var req service.MarketTrendRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	trend, err := h.service.CreateTrend(c.UserContext(), actor(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(trend)
}

// GetTrends lists market trends, newest first
// GET /api/v1/forecasting/trends?category_id=&min_impact=&start_date=&end_date=&skip=&limit=
func (h *ForecastHandler) GetTrends(c *fiber.Ctx) error {
	q := newQuery(c)
	f := repository.MarketTrendFilter{
		CategoryID: q.id("category_id"),
		MinImpact:  q.decimal("min_impact"),
		From:       q.date("start_date"),
		To:         q.date("end_date"),
		Page:       page(c),
	}
	if err := q.err(); err != nil {
		return err
	}
	trends, err := h.service.ListTrends(c.UserContext(), f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(trends)
}
