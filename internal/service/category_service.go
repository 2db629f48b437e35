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

type CategoryService interface {
	Create(ctx context.Context, actor Actor, req *CategoryRequest) (*model.Category, error)
	List(ctx context.Context, f repository.CategoryFilter) ([]model.Category, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Category, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req *CategoryUpdate) (*model.Category, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	Products(ctx context.Context, id uuid.UUID, page repository.Page) ([]model.Product, error)
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description"`
}

type CategoryUpdate struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=100"`
	Description *string `json:"description"`
}

type categoryService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	trends     repository.MarketTrendRepository
	deps       Deps
}

func NewCategoryService(categories repository.CategoryRepository, products repository.ProductRepository, trends repository.MarketTrendRepository, deps Deps) CategoryService {
	return &categoryService{categories: categories, products: products, trends: trends, deps: deps.withDefaults()}
}

func (s *categoryService) Create(ctx context.Context, actor Actor, req *CategoryRequest) (*model.Category, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureNameFree(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}

	category := &model.Category{Name: name, Description: req.Description}
	category.Touch(actor.Audit())
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, writeErr(err, "Category")
	}
	s.deps.changed(ctx, ws.Event{Type: ws.EventStockUpdate, Action: "category_created", Data: category, User: actor.eventUser()})
	return category, nil
}

func (s *categoryService) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.categories.FindByName(ctx, name)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if existing != nil && existing.ID != self {
		return newError(ErrDuplicate, "Category with this name already exists")
	}
	return nil
}

func (s *categoryService) List(ctx context.Context, f repository.CategoryFilter) ([]model.Category, error) {
	return s.categories.FindAll(ctx, f)
}

func (s *categoryService) Get(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Category")
	}
	return category, nil
}

func (s *categoryService) Update(ctx context.Context, actor Actor, id uuid.UUID, req *CategoryUpdate) (*model.Category, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != category.Name {
			if err := s.ensureNameFree(ctx, name, category.ID); err != nil {
				return nil, err
			}
		}
		category.Name = name
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	category.Touch(actor.Audit())
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, writeErr(err, "Category")
	}
	s.deps.changed(ctx, ws.Event{Type: ws.EventStockUpdate, Action: "category_updated", Data: category, User: actor.eventUser()})
	return category, nil
}

func (s *categoryService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	category, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.products.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return newError(ErrInUse, "Cannot delete category that has %d products", n)
	}
	n, err = s.trends.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return newError(ErrInUse, "Cannot delete category that has %d market trends", n)
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return writeErr(err, "Category")
	}
	s.deps.changed(ctx, ws.Event{
		Type:    ws.EventStockUpdate,
		Action:  "category_deleted",
		Data:    map[string]interface{}{"id": id},
		User:    actor.eventUser(),
		Message: fmt.Sprintf("%s deleted category '%s'", actor.Username, category.Name),
	})
	return nil
}

func (s *categoryService) Products(ctx context.Context, id uuid.UUID, page repository.Page) ([]model.Product, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.products.FindAll(ctx, repository.ProductFilter{CategoryID: &id, Page: page})
}
