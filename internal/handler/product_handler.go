package handler

import (
	"github.com/gofiber/fiber/v2"

	"qualistock/internal/repository"
	"qualistock/internal/service"
)

// ProductHandler serves both /products and the legacy /stock/products routes.
type ProductHandler struct {
	service service.ProductService
}

func NewProductHandler(s service.ProductService) *ProductHandler {
	return &ProductHandler{service: s}
}

// CreateProduct creates a product with its placeholder stock row
// POST /api/v1/products
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}

	product, err := h.service.Create(c.UserContext(), actor(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// GetProducts lists products
// GET /api/v1/products?name=&category_id=&skip=&limit=
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	q := newQuery(c)
	filter := repository.ProductFilter{
		Name:       c.Query("name"),
		CategoryID: q.id("category_id"),
		Page:       page(c),
	}
	if err := q.err(); err != nil {
		return err
	}

	products, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// GetProduct returns one product
// GET /api/v1/products/:id
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "product")
	if err != nil {
		return err
	}
	product, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// UpdateProduct changes the provided fields of a product
// PUT /api/v1/products/:id
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "product")
	if err != nil {
		return err
	}
	var req service.ProductUpdate
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}

	updated, err := h.service.Update(c.UserContext(), actor(c), id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

// DeleteProduct removes a product nothing references
// DELETE /api/v1/products/:id
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "product")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetProductStock lists the stock items of a product
// GET /api/v1/products/:id/stock
func (h *ProductHandler) GetProductStock(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "product")
	if err != nil {
		return err
	}
	items, err := h.service.Stock(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}
