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
)

func TestStockCreateAndMovements(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)
	food := e.category(t, admin, "Food")
	apple := e.product(t, admin, food.ID, "Apple", "FOOD001")

	_, err := e.stock.Create(ctx, admin, &StockItemRequest{ProductID: uuid.New(), Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Product not found", err.Error())

	_, err = e.stock.Create(ctx, admin, &StockItemRequest{ProductID: apple.ID, Quantity: -1})
	assert.ErrorIs(t, err, ErrValidation)

	item := e.stockItem(t, admin, apple.ID, 50, nil)
	ev := e.events.last()
	assert.Equal(t, "stock_item_created", ev.Action)
	data := ev.Data.(map[string]interface{})
	assert.Equal(t, 0, data["old_quantity"])
	assert.Equal(t, 50, data["new_quantity"])

	qty := 20
	updated, err := e.stock.Update(ctx, admin, item.ID, &StockItemUpdate{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 20, updated.Quantity)

	moves, err := e.stock.Movements(ctx, repository.MovementFilter{StockItemID: &item.ID})
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, model.MovementOut, moves[0].Type)
	assert.Equal(t, 30, moves[0].Quantity)
	assert.Equal(t, 20, moves[0].Balance)
	assert.Equal(t, model.MovementIn, moves[1].Type)
	assert.Equal(t, 50, moves[1].Quantity)
}

func TestStockClearKeepsRow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)
	food := e.category(t, admin, "Food")
	apple := e.product(t, admin, food.ID, "Apple", "FOOD001")
	item := e.stockItem(t, admin, apple.ID, 12, dur(5*24*time.Hour))

	cleared, err := e.stock.Clear(ctx, admin, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cleared.Quantity)
	assert.Empty(t, cleared.Location)
	assert.Empty(t, cleared.BatchNumber)
	assert.Nil(t, cleared.ExpirationDate)
	assert.Equal(t, "stock_item_cleared", e.events.last().Action)

	stored, err := e.stock.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Quantity)

	before := len(e.events.ofType("stock_update"))
	_, err = e.stock.Clear(ctx, admin, item.ID)
	require.NoError(t, err)
	assert.Len(t, e.events.ofType("stock_update"), before)

	_, err = e.stock.Clear(ctx, admin, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Stock item not found", err.Error())
}

func TestStockUpsertUsesFirstItem(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)
	food := e.category(t, admin, "Food")
	apple := e.product(t, admin, food.ID, "Apple", "FOOD001")

	item, err := e.stock.Upsert(ctx, admin, &StockItemRequest{ProductID: apple.ID, Quantity: 40, Location: "Warehouse B", BatchNumber: "BATCH11"})
	require.NoError(t, err)
	assert.Equal(t, 40, item.Quantity)
	assert.Equal(t, "Warehouse B", item.Location)
	assert.Equal(t, "stock_item_updated", e.events.last().Action)

	items, err := e.products.Stock(ctx, apple.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, e.stock.Delete(ctx, admin, item.ID))
	item, err = e.stock.Upsert(ctx, admin, &StockItemRequest{ProductID: apple.ID, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
	assert.Equal(t, "stock_item_created", e.events.last().Action)
}

func TestStockSetZero(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)
	food := e.category(t, admin, "Food")
	apple := e.product(t, admin, food.ID, "Apple", "FOOD001")

	items, err := e.products.Stock(ctx, apple.ID)
	require.NoError(t, err)
	require.NoError(t, e.stock.Delete(ctx, admin, items[0].ID))

	item, err := e.stock.SetZero(ctx, admin, apple.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, 0, item.Quantity)
	assert.Equal(t, model.PlaceholderLocation, item.Location)
	assert.Equal(t, model.PlaceholderBatch, item.BatchNumber)

	qty := 9
	_, err = e.stock.Update(ctx, admin, item.ID, &StockItemUpdate{Quantity: &qty})
	require.NoError(t, err)
	zeroed, err := e.stock.SetZero(ctx, admin, apple.ID, "Warehouse C", "X")
	require.NoError(t, err)
	assert.Equal(t, item.ID, zeroed.ID)
	assert.Equal(t, 0, zeroed.Quantity)
	assert.Equal(t, model.PlaceholderLocation, zeroed.Location)

	_, err = e.stock.SetZero(ctx, admin, uuid.New(), "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStockListFiltersAndCounts(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)
	food := e.category(t, admin, "Food")
	apple := e.product(t, admin, food.ID, "Apple", "FOOD001")

	e.stockItem(t, admin, apple.ID, 3, dur(3*24*time.Hour))
	e.stockItem(t, admin, apple.ID, 80, dur(60*24*time.Hour))
	e.stockItem(t, admin, apple.ID, 15, nil)

	low, err := e.stock.List(ctx, StockQuery{LowStock: true})
	require.NoError(t, err)
	assert.Len(t, low, 2) // placeholder and the 3-unit batch

	soon, err := e.stock.List(ctx, StockQuery{ExpiringSoon: true})
	require.NoError(t, err)
	require.Len(t, soon, 1)
	assert.Equal(t, 3, soon[0].Quantity)

	floor := 10
	big, err := e.stock.List(ctx, StockQuery{MinQuantity: &floor, ProductID: &apple.ID})
	require.NoError(t, err)
	assert.Len(t, big, 2)

	n, err := e.stock.CountLowStock(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	n, err = e.stock.CountLowStock(ctx, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = e.stock.CountExpiringSoon(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = e.stock.CountExpiringSoon(ctx, 90)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestStockInitializeMissing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)
	food := e.category(t, admin, "Food")
	apple := e.product(t, admin, food.ID, "Apple", "FOOD001")
	e.product(t, admin, food.ID, "Orange", "FOOD002")

	items, err := e.products.Stock(ctx, apple.ID)
	require.NoError(t, err)
	require.NoError(t, e.stock.Delete(ctx, admin, items[0].ID))

	created, err := e.stock.InitializeMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	items, err = e.products.Stock(ctx, apple.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "system", items[0].CreatedBy)

	created, err = e.stock.InitializeMissing(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)
}
