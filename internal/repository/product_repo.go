package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"qualistock/internal/model"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	// CreateWithStock inserts the product and its first stock row atomically.
	CreateWithStock(ctx context.Context, product *model.Product, stock *model.StockItem) error
	FindAll(ctx context.Context, f ProductFilter) ([]model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	FindWithoutStock(ctx context.Context) ([]model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return translate(r.db.WithContext(ctx).Omit("Category").Create(product).Error)
}

func (r *productRepo) CreateWithStock(ctx context.Context, product *model.Product, stock *model.StockItem) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Category").Create(product).Error; err != nil {
			return err
		}
		stock.ProductID = product.ID
		return tx.Omit("Product").Create(stock).Error
	})
	return translate(err)
}

func (r *productRepo) FindAll(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	q := r.db.WithContext(ctx).Model(&model.Product{}).Preload("Category")
	if f.Name != "" {
		q = q.Where("LOWER(name) LIKE ?", likePattern(f.Name))
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	products := []model.Product{}
	err := f.Page.apply(q).Order("name ASC").Find(&products).Error
	return products, translate(err)
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&product).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) FindWithoutStock(ctx context.Context) ([]model.Product, error) {
	products := []model.Product{}
	err := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM stock_items WHERE stock_items.product_id = products.id)").
		Order("name ASC").
		Find(&products).Error
	return products, translate(err)
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return translate(r.db.WithContext(ctx).Omit("Category").Save(product).Error)
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID[model.Product](ctx, r.db, id)
}

func (r *productRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&n).Error
	return n, translate(err)
}

func (r *productRepo) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	return countWhere[model.Product](ctx, r.db, "category_id = ?", categoryID)
}
