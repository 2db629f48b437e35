package handler

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"qualistock/internal/report"
	"qualistock/internal/service"
)

const defaultExpirationWindow = 90

type ExpirationHandler struct {
	service service.ExpirationService
	now     func() time.Time
}

func NewExpirationHandler(s service.ExpirationService) *ExpirationHandler {
	return &ExpirationHandler{service: s, now: func() time.Time { return time.Now().UTC() }}
}

func (h *ExpirationHandler) expirationQuery(c *fiber.Ctx, paged bool) (service.ExpirationQuery, error) {
	q := newQuery(c)
	eq := service.ExpirationQuery{
		Days:       c.QueryInt("days", defaultExpirationWindow),
		CategoryID: q.id("category_id"),
		ProductID:  q.id("product_id"),
	}
	if paged {
		eq.Page = page(c)
	}
	if err := q.err(); err != nil {
		return eq, err
	}
	if eq.Days <= 0 {
		return eq, badRequest("days must be positive")
	}
	return eq, nil
}

// GetItems lists stock expiring within days, soonest first
// GET /api/v1/expiration/items?days=&category_id=&product_id=&skip=&limit=
func (h *ExpirationHandler) GetItems(c *fiber.Ctx) error {
	eq, err := h.expirationQuery(c, true)
	if err != nil {
		return err
	}
	items, err := h.service.Items(c.UserContext(), eq)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// GetStats summarises the expiration windows
// GET /api/v1/expiration/stats
func (h *ExpirationHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// GetCritical lists items expiring within the critical window
// GET /api/v1/expiration/critical
func (h *ExpirationHandler) GetCritical(c *fiber.Ctx) error {
	items, err := h.service.Critical(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// GetReportPDF renders the expiring items as a PDF table
// GET /api/v1/expiration/report.pdf?days=&category_id=&product_id=
func (h *ExpirationHandler) GetReportPDF(c *fiber.Ctx) error {
	eq, err := h.expirationQuery(c, false)
	if err != nil {
		return err
	}
	items, err := h.service.Items(c.UserContext(), eq)
	if err != nil {
		return respondError(c, err)
	}
	now := h.now()
	pdf, err := report.ExpirationPDF(items, eq.Days, now)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, attachment(now, "pdf"))
	return c.Send(pdf)
}

// GetReportCSV exports the expiring items as CSV
// GET /api/v1/expiration/report.csv?days=&category_id=&product_id=
func (h *ExpirationHandler) GetReportCSV(c *fiber.Ctx) error {
	eq, err := h.expirationQuery(c, false)
	if err != nil {
		return err
	}
	items, err := h.service.Items(c.UserContext(), eq)
	if err != nil {
		return respondError(c, err)
	}
	var buf bytes.Buffer
	if err := report.WriteExpirationCSV(&buf, items); err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, attachment(h.now(), "csv"))
	return c.Send(buf.Bytes())
}

func attachment(now time.Time, ext string) string {
	return fmt.Sprintf(`attachment; filename="expiring-stock-%s.%s"`, now.Format("20060102"), ext)
}
