package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualistock/internal/model"
	"qualistock/internal/repository"
	"qualistock/internal/ws"
)

func TestCategoryCreateAndDuplicate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)

	food := e.category(t, admin, "  Food ")
	assert.Equal(t, "Food", food.Name)
	assert.Equal(t, admin.ID.String(), food.CreatedBy)
	assert.Equal(t, 1, e.bumps.count())
	assert.Equal(t, "category_created", e.events.last().Action)

	_, err := e.categories.Create(ctx, admin, &CategoryRequest{Name: "Food"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, "Category with this name already exists", err.Error())

	_, err = e.categories.Create(ctx, admin, &CategoryRequest{Name: "   "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCategoryUpdate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)
	food := e.category(t, admin, "Food")
	e.category(t, admin, "Clothing")

	name := "Fresh Food"
	desc := "perishables"
	updated, err := e.categories.Update(ctx, admin, food.ID, &CategoryUpdate{Name: &name, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Fresh Food", updated.Name)
	assert.Equal(t, "perishables", updated.Description)

	taken := "Clothing"
	_, err = e.categories.Update(ctx, admin, food.ID, &CategoryUpdate{Name: &taken})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = e.categories.Update(ctx, admin, uuid.New(), &CategoryUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Category not found", err.Error())
}

func TestCategoryDeleteBlockedByReferences(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)

	food := e.category(t, admin, "Food")
	e.product(t, admin, food.ID, "Apple", "FOOD001")
	err := e.categories.Delete(ctx, admin, food.ID)
	assert.ErrorIs(t, err, ErrInUse)
	assert.Equal(t, "Cannot delete category that has 1 products", err.Error())

	toys := e.category(t, admin, "Toys")
	_, err = e.forecasts.CreateTrend(ctx, admin, &MarketTrendRequest{
		CategoryID:       toys.ID,
		TrendDescription: "holiday demand",
		ImpactLevel:      0.7,
	})
	require.NoError(t, err)
	err = e.categories.Delete(ctx, admin, toys.ID)
	assert.ErrorIs(t, err, ErrInUse)
	assert.Equal(t, "Cannot delete category that has 1 market trends", err.Error())

	empty := e.category(t, admin, "Empty")
	require.NoError(t, e.categories.Delete(ctx, admin, empty.ID))
	_, err = e.categories.Get(ctx, empty.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "category_deleted", e.events.last().Action)
}

func TestCategoryListAndProducts(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)
	food := e.category(t, admin, "Food")
	elec := e.category(t, admin, "Electronics")
	e.product(t, admin, food.ID, "Apple", "FOOD001")
	e.product(t, admin, food.ID, "Orange", "FOOD002")
	e.product(t, admin, elec.ID, "Laptop", "ELEC001")

	list, err := e.categories.List(ctx, repository.CategoryFilter{Name: "foo"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Food", list[0].Name)

	products, err := e.categories.Products(ctx, food.ID, repository.Page{})
	require.NoError(t, err)
	assert.Len(t, products, 2)

	products, err = e.categories.Products(ctx, food.ID, repository.Page{Skip: 1, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, products, 1)

	_, err = e.categories.Products(ctx, uuid.New(), repository.Page{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductCreateAddsPlaceholderStock(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)
	food := e.category(t, admin, "Food")

	apple := e.product(t, admin, food.ID, "Apple", "FOOD001")
	require.NotNil(t, apple.Category)
	assert.Equal(t, "Food", apple.Category.Name)

	items, err := e.products.Stock(ctx, apple.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 0, items[0].Quantity)
	assert.Equal(t, model.PlaceholderLocation, items[0].Location)
	assert.Equal(t, model.PlaceholderBatch, items[0].BatchNumber)

	ev := e.events.last()
	assert.Equal(t, ws.EventStockUpdate, ev.Type)
	assert.Equal(t, "product_created", ev.Action)
	assert.Equal(t, "admin created product 'Apple'", ev.Message)
}

func TestProductCreateRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)
	food := e.category(t, admin, "Food")
	e.product(t, admin, food.ID, "Apple", "FOOD001")

	_, err := e.products.Create(ctx, admin, &ProductRequest{Name: "Other", SKU: "FOOD001", CategoryID: food.ID})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, "Product with this SKU already exists", err.Error())

	_, err = e.products.Create(ctx, admin, &ProductRequest{Name: "Pear", SKU: "FOOD003", CategoryID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Category not found", err.Error())

	_, err = e.products.Create(ctx, admin, &ProductRequest{Name: "Pear", SKU: "FOOD003"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.products.Create(ctx, admin, &ProductRequest{Name: "Pear", SKU: "FOOD003", CategoryID: food.ID, UnitPrice: -1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProductUpdate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)
	food := e.category(t, admin, "Food")
	elec := e.category(t, admin, "Electronics")
	apple := e.product(t, admin, food.ID, "Apple", "FOOD001")
	e.product(t, admin, food.ID, "Orange", "FOOD002")

	price := 7.5
	updated, err := e.products.Update(ctx, admin, apple.ID, &ProductUpdate{UnitPrice: &price, CategoryID: &elec.ID})
	require.NoError(t, err)
	assert.Equal(t, 7.5, updated.UnitPrice)
	assert.Equal(t, elec.ID, updated.CategoryID)

	same := "FOOD001"
	_, err = e.products.Update(ctx, admin, apple.ID, &ProductUpdate{SKU: &same})
	require.NoError(t, err)

	clash := "FOOD002"
	_, err = e.products.Update(ctx, admin, apple.ID, &ProductUpdate{SKU: &clash})
	assert.ErrorIs(t, err, ErrDuplicate)

	missing := uuid.New()
	_, err = e.products.Update(ctx, admin, apple.ID, &ProductUpdate{CategoryID: &missing})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductDeleteBlockedByReferences(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)
	food := e.category(t, admin, "Food")
	apple := e.product(t, admin, food.ID, "Apple", "FOOD001")

	err := e.products.Delete(ctx, admin, apple.ID)
	assert.ErrorIs(t, err, ErrInUse)
	assert.Equal(t, "Cannot delete product that has 1 stock items", err.Error())

	items, err := e.products.Stock(ctx, apple.ID)
	require.NoError(t, err)
	require.NoError(t, e.stock.Delete(ctx, admin, items[0].ID))

	_, err = e.forecasts.Create(ctx, admin, &ForecastRequest{
		ProductID:       apple.ID,
		ForecastDate:    testNow.Add(48 * time.Hour),
		PredictedDemand: 10,
		ConfidenceLevel: 0.5,
	})
	require.NoError(t, err)
	err = e.products.Delete(ctx, admin, apple.ID)
	assert.Equal(t, "Cannot delete product that has 1 forecasts", err.Error())

	orange := e.product(t, admin, food.ID, "Orange", "FOOD002")
	items, err = e.products.Stock(ctx, orange.ID)
	require.NoError(t, err)
	require.NoError(t, e.stock.Delete(ctx, admin, items[0].ID))
	require.NoError(t, e.products.Delete(ctx, admin, orange.ID))

	_, err = e.products.Get(ctx, orange.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Product not found", err.Error())
	assert.Equal(t, "product_deleted", e.events.last().Action)
}
