package handler

import (
	"github.com/gofiber/fiber/v2"

	"qualistock/internal/model"
	"qualistock/internal/repository"
	"qualistock/internal/service"
)

// InventoryHandler serves stock items under /stock-items and the legacy /stock routes.
type InventoryHandler struct {
	service service.StockService
}

func NewInventoryHandler(s service.StockService) *InventoryHandler {
	return &InventoryHandler{service: s}
}

// CreateStockItem adds a stock item
// POST /api/v1/stock-items
func (h *InventoryHandler) CreateStockItem(c *fiber.Ctx) error {
	var req service.StockItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	item, err := h.service.Create(c.UserContext(), actor(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// UpsertStockItem updates the product's first stock item or creates one
// POST /api/v1/stock/items
func (h *InventoryHandler) UpsertStockItem(c *fiber.Ctx) error {
	var req service.StockItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	item, err := h.service.Upsert(c.UserContext(), actor(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// GetStockItems lists stock items
// GET /api/v1/stock-items?location=&product_id=&min_quantity=&low_stock=&expiring_soon=&skip=&limit=
func (h *InventoryHandler) GetStockItems(c *fiber.Ctx) error {
	q := newQuery(c)
	sq := service.StockQuery{
		Location:     c.Query("location"),
		ProductID:    q.id("product_id"),
		MinQuantity:  q.num("min_quantity"),
		LowStock:     q.flag("low_stock"),
		ExpiringSoon: q.flag("expiring_soon"),
		Page:         page(c),
	}
	if err := q.err(); err != nil {
		return err
	}

	items, err := h.service.List(c.UserContext(), sq)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// GetStockItem returns one stock item
// GET /api/v1/stock-items/:id
func (h *InventoryHandler) GetStockItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "stock item")
	if err != nil {
		return err
	}
	item, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// UpdateStockItem changes only the provided fields
// PUT /api/v1/stock-items/:id
func (h *InventoryHandler) UpdateStockItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "stock item")
	if err != nil {
		return err
	}
	var req service.StockItemUpdate
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	item, err := h.service.Update(c.UserContext(), actor(c), id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// DeleteStockItem removes the row
// DELETE /api/v1/stock-items/:id
func (h *InventoryHandler) DeleteStockItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "stock item")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ClearStockItem empties the item and keeps the row
// DELETE /api/v1/stock/items/:id
func (h *InventoryHandler) ClearStockItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "stock item")
	if err != nil {
		return err
	}
	if _, err := h.service.Clear(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetZeroStock zeroes the product's stock, creating a row when it has none
// POST /api/v1/stock/products/:id/set-zero-stock?location=&batch_number=
func (h *InventoryHandler) SetZeroStock(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "product")
	if err != nil {
		return err
	}
	location := c.Query("location", model.PlaceholderLocation)
	batch := c.Query("batch_number", model.PlaceholderBatch)

	item, err := h.service.SetZero(c.UserContext(), actor(c), id, location, batch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// ExpiringSoonCount counts items expiring within days (default 30)
// GET /api/v1/stock-items/analytics/expiring-soon-count
func (h *InventoryHandler) ExpiringSoonCount(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days <= 0 {
		return badRequest("days must be positive")
	}
	n, err := h.service.CountExpiringSoon(c.UserContext(), days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"count": n})
}

// LowStockCount counts items below threshold (default 10)
// GET /api/v1/stock-items/analytics/low-stock-count
func (h *InventoryHandler) LowStockCount(c *fiber.Ctx) error {
	threshold := c.QueryInt("threshold", 10)
	n, err := h.service.CountLowStock(c.UserContext(), threshold)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"count": n})
}

// GetMovements lists the stock audit trail, newest first
// GET /api/v1/stock/movements?product_id=&stock_item_id=&skip=&limit=
func (h *InventoryHandler) GetMovements(c *fiber.Ctx) error {
	q := newQuery(c)
	f := repository.MovementFilter{
		ProductID:   q.id("product_id"),
		StockItemID: q.id("stock_item_id"),
		Page:        page(c),
	}
	if err := q.err(); err != nil {
		return err
	}
	movements, err := h.service.Movements(c.UserContext(), f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(movements)
}
