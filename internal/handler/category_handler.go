package handler

import (
	"github.com/gofiber/fiber/v2"

	"qualistock/internal/repository"
	"qualistock/internal/service"
)

type CategoryHandler struct {
	service service.CategoryService
}

func NewCategoryHandler(s service.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: s}
}

// CreateCategory handles category creation
// POST /api/v1/categories
func (h *CategoryHandler) CreateCategory(c *fiber.Ctx) error {
	var req service.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}

	category, err := h.service.Create(c.UserContext(), actor(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// GetCategories lists categories
// GET /api/v1/categories?name=&skip=&limit=
func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.service.List(c.UserContext(), repository.CategoryFilter{
		Name: c.Query("name"),
		Page: page(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(categories)
}

// GetCategory returns one category
// GET /api/v1/categories/:id
func (h *CategoryHandler) GetCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "category")
	if err != nil {
		return err
	}
	category, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(category)
}

// UpdateCategory handles category changes
// PUT /api/v1/categories/:id
func (h *CategoryHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "category")
	if err != nil {
		return err
	}
	var req service.CategoryUpdate
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}

	category, err := h.service.Update(c.UserContext(), actor(c), id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(category)
}

// DeleteCategory removes a category without products or market trends
// DELETE /api/v1/categories/:id
func (h *CategoryHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "category")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetCategoryProducts lists the products of a category
// GET /api/v1/categories/:id/products
func (h *CategoryHandler) GetCategoryProducts(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "category")
	if err != nil {
		return err
	}
	products, err := h.service.Products(c.UserContext(), id, page(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}
