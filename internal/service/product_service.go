package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"qualistock/internal/model"
	"qualistock/internal/repository"
	"qualistock/internal/ws"
)

type ProductService interface {
	Create(ctx context.Context, actor Actor, req *ProductRequest) (*model.Product, error)
	List(ctx context.Context, f repository.ProductFilter) ([]model.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Product, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req *ProductUpdate) (*model.Product, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	Stock(ctx context.Context, id uuid.UUID) ([]model.StockItem, error)
}

type ProductRequest struct {
	Name        string    `json:"name" validate:"required,notblank,max=255"`
	SKU         string    `json:"sku" validate:"required,notblank,max=50"`
	Description string    `json:"description"`
	CategoryID  uuid.UUID `json:"category_id" validate:"uuid_required"`
	UnitPrice   float64   `json:"unit_price" validate:"gte=0"`
}

type ProductUpdate struct {
	Name        *string    `json:"name" validate:"omitempty,notblank,max=255"`
	SKU         *string    `json:"sku" validate:"omitempty,notblank,max=50"`
	Description *string    `json:"description"`
	CategoryID  *uuid.UUID `json:"category_id"`
	UnitPrice   *float64   `json:"unit_price" validate:"omitempty,gte=0"`
}

type productService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	stock      repository.StockItemRepository
	checks     repository.QualityCheckRepository
	forecasts  repository.ForecastRepository
	deps       Deps
}

func NewProductService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	stock repository.StockItemRepository,
	checks repository.QualityCheckRepository,
	forecasts repository.ForecastRepository,
	deps Deps,
) ProductService {
	return &productService{
		products:   products,
		categories: categories,
		stock:      stock,
		checks:     checks,
		forecasts:  forecasts,
		deps:       deps.withDefaults(),
	}
}

// Create stores the product together with its placeholder stock row.
func (s *productService) Create(ctx context.Context, actor Actor, req *ProductRequest) (*model.Product, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	sku := strings.TrimSpace(req.SKU)
	if err := s.ensureSKUFree(ctx, sku, uuid.Nil); err != nil {
		return nil, err
	}
	category, err := s.categories.FindByID(ctx, req.CategoryID)
	if err != nil {
		return nil, lookupErr(err, "Category")
	}

	product := &model.Product{
		Name:        strings.TrimSpace(req.Name),
		SKU:         sku,
		Description: req.Description,
		CategoryID:  category.ID,
		UnitPrice:   req.UnitPrice,
	}
	product.Touch(actor.Audit())
	placeholder := model.NewPlaceholderStock(uuid.Nil)
	placeholder.Touch(actor.Audit())

	if err := s.products.CreateWithStock(ctx, product, placeholder); err != nil {
		return nil, writeErr(err, "Product")
	}
	product.Category = category

	s.deps.changed(ctx, ws.Event{
		Type:    ws.EventStockUpdate,
		Action:  "product_created",
		Data:    product,
		User:    actor.eventUser(),
		Message: fmt.Sprintf("%s created product '%s'", actor.Username, product.Name),
	})
	return product, nil
}

func (s *productService) ensureSKUFree(ctx context.Context, sku string, self uuid.UUID) error {
	existing, err := s.products.FindBySKU(ctx, sku)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if existing != nil && existing.ID != self {
		return newError(ErrDuplicate, "Product with this SKU already exists")
	}
	return nil
}

func (s *productService) List(ctx context.Context, f repository.ProductFilter) ([]model.Product, error) {
	return s.products.FindAll(ctx, f)
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Product")
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, actor Actor, id uuid.UUID, req *ProductUpdate) (*model.Product, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.CategoryID != nil {
		category, err := s.categories.FindByID(ctx, *req.CategoryID)
		if err != nil {
			return nil, lookupErr(err, "Category")
		}
		product.CategoryID = category.ID
		product.Category = category
	}
	if req.SKU != nil {
		sku := strings.TrimSpace(*req.SKU)
		if sku != product.SKU {
			if err := s.ensureSKUFree(ctx, sku, product.ID); err != nil {
				return nil, err
			}
		}
		product.SKU = sku
	}
	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.UnitPrice != nil {
		product.UnitPrice = *req.UnitPrice
	}
	product.Touch(actor.Audit())
	if err := s.products.Update(ctx, product); err != nil {
		return nil, writeErr(err, "Product")
	}

	s.deps.changed(ctx, ws.Event{
		Type:    ws.EventStockUpdate,
		Action:  "product_updated",
		Data:    product,
		User:    actor.eventUser(),
		Message: fmt.Sprintf("%s updated product '%s'", actor.Username, product.Name),
	})
	return product, nil
}

// Delete refuses while stock, quality checks or forecasts still point at the product.
func (s *productService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	product, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	refs := []struct {
		what  string
		count func(context.Context, uuid.UUID) (int64, error)
	}{
		{"stock items", s.stock.CountByProduct},
		{"quality checks", s.checks.CountByProduct},
		{"forecasts", s.forecasts.CountByProduct},
	}
	for _, ref := range refs {
		n, err := ref.count(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return newError(ErrInUse, "Cannot delete product that has %d %s", n, ref.what)
		}
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return writeErr(err, "Product")
	}
	s.deps.changed(ctx, ws.Event{
		Type:    ws.EventStockUpdate,
		Action:  "product_deleted",
		Data:    map[string]interface{}{"id": id, "sku": product.SKU},
		User:    actor.eventUser(),
		Message: fmt.Sprintf("%s deleted product '%s'", actor.Username, product.Name),
	})
	return nil
}

func (s *productService) Stock(ctx context.Context, id uuid.UUID) ([]model.StockItem, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.stock.FindByProduct(ctx, id)
}
