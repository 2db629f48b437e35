package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"qualistock/internal/app"
	"qualistock/internal/model"
	"qualistock/internal/repository"
	"qualistock/pkg/database"
)

// openTestDB connects to TEST_DATABASE_URL and skips when it is unset.
// TEST_DATABASE_DRIVER selects mysql; postgres is the default.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Connect(database.Options{
		Driver:   os.Getenv("TEST_DATABASE_DRIVER"),
		URL:      url,
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(app.Models()...))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB) (*model.Category, *model.Product) {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	category := &model.Category{Name: "Test " + suffix}
	require.NoError(t, repository.NewCategoryRepo(db).Create(ctx, category))
	product := &model.Product{Name: "Widget", SKU: "T-" + suffix, CategoryID: category.ID}
	require.NoError(t, repository.NewProductRepo(db).CreateWithStock(ctx, product, model.NewPlaceholderStock(uuid.Nil)))
	t.Cleanup(func() {
		db.Where("product_id = ?", product.ID).Delete(&model.StockMovement{})
		db.Where("product_id = ?", product.ID).Delete(&model.StockItem{})
		db.Delete(&model.Product{}, "id = ?", product.ID)
		db.Delete(&model.Category{}, "id = ?", category.ID)
	})
	return category, product
}

func TestProductRepoTranslatesErrors(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	category, product := seedProduct(t, db)
	products := repository.NewProductRepo(db)

	dup := &model.Product{Name: "Other", SKU: product.SKU, CategoryID: category.ID}
	assert.ErrorIs(t, products.Create(ctx, dup), repository.ErrDuplicate)

	_, err := products.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	found, err := products.FindBySKU(ctx, product.SKU)
	require.NoError(t, err)
	assert.Equal(t, product.ID, found.ID)
}

func TestCreateWithStockAddsPlaceholder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, product := seedProduct(t, db)

	items, err := repository.NewStockItemRepo(db).FindByProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.PlaceholderLocation, items[0].Location)
	assert.Equal(t, model.PlaceholderBatch, items[0].BatchNumber)
	assert.Zero(t, items[0].Quantity)
}

func TestStockUpdatesRecordMovements(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, product := seedProduct(t, db)
	stock := repository.NewStockItemRepo(db)

	item, err := stock.UpsertForProduct(ctx, product.ID, "restock", func(item *model.StockItem, existed bool) {
		assert.True(t, existed)
		item.Quantity = 25
	})
	require.NoError(t, err)
	assert.Equal(t, 25, item.Quantity)

	prev := item.Quantity
	item.Quantity = 5
	require.NoError(t, stock.Update(ctx, item, prev, "sold"))

	moves, err := repository.NewStockMovementRepo(db).FindAll(ctx, repository.MovementFilter{ProductID: &product.ID})
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, model.MovementOut, moves[0].Type)
	assert.Equal(t, 20, moves[0].Quantity)
	assert.Equal(t, 5, moves[0].Balance)
	assert.Equal(t, model.MovementIn, moves[1].Type)
}

func TestAtomicRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	name := "Rollback " + uuid.NewString()[:8]
	boom := errors.New("boom")

	err := app.GormRepositories(db).Atomic(ctx, func(tx app.Repositories) error {
		require.NoError(t, tx.Categories.Create(ctx, &model.Category{Name: name}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int64
	require.NoError(t, db.Model(&model.Category{}).Where("name = ?", name).Count(&n).Error)
	assert.Zero(t, n)
}
