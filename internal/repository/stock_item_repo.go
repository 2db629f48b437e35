package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"qualistock/internal/model"
)

// UpsertFunc mutates the locked stock row. existed is false for a fresh row.
type UpsertFunc func(item *model.StockItem, existed bool)

type StockItemRepository interface {
	// Create inserts the item and records an inbound movement for its quantity.
	Create(ctx context.Context, item *model.StockItem) error
	// Update saves the item and records the movement from previousQty.
	Update(ctx context.Context, item *model.StockItem, previousQty int, reason string) error
	// Delete removes the item and records its remaining quantity as outbound.
	Delete(ctx context.Context, item *model.StockItem) error
	// UpsertForProduct locks the product's first stock row, or starts a new
	// one, applies fn and saves it in one transaction.
	UpsertForProduct(ctx context.Context, productID uuid.UUID, reason string, fn UpsertFunc) (*model.StockItem, error)
	FindAll(ctx context.Context, f StockItemFilter) ([]model.StockItem, error)
	Count(ctx context.Context, f StockItemFilter) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.StockItem, error)
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockItem, error)
	CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	QuantityByProduct(ctx context.Context) (map[uuid.UUID]int64, error)
	FindExpiring(ctx context.Context, f ExpiringFilter) ([]ExpiringItem, error)
	CountExpiring(ctx context.Context, f ExpiringFilter) (int64, error)
	CountExpiringByCategory(ctx context.Context, from, to time.Time) ([]CategoryCount, error)
}

type stockItemRepo struct {
	db *gorm.DB
}

func NewStockItemRepo(db *gorm.DB) StockItemRepository {
	return &stockItemRepo{db}
}

func (r *stockItemRepo) Create(ctx context.Context, item *model.StockItem) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Product").Create(item).Error; err != nil {
			return err
		}
		return recordMovement(tx, model.NewMovement(item, 0, model.ReasonCreated, item.UpdatedBy))
	})
	return translate(err)
}

func (r *stockItemRepo) Update(ctx context.Context, item *model.StockItem, previousQty int, reason string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Product").Save(item).Error; err != nil {
			return err
		}
		return recordMovement(tx, model.NewMovement(item, previousQty, reason, item.UpdatedBy))
	})
	return translate(err)
}

func (r *stockItemRepo) Delete(ctx context.Context, item *model.StockItem) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.StockItem{}, "id = ?", item.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		previous := item.Quantity
		gone := *item
		gone.Quantity = 0
		return recordMovement(tx, model.NewMovement(&gone, previous, model.ReasonDeleted, item.UpdatedBy))
	})
	return translate(err)
}

func (r *stockItemRepo) UpsertForProduct(ctx context.Context, productID uuid.UUID, reason string, fn UpsertFunc) (*model.StockItem, error) {
	var result model.StockItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.StockItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ?", productID).
			Order("created_at ASC").
			First(&item).Error
		existed := true
		if errors.Is(err, gorm.ErrRecordNotFound) {
			existed = false
			item = model.StockItem{ProductID: productID}
		} else if err != nil {
			return err
		}

		previous := item.Quantity
		if !existed {
			previous = 0
		}
		fn(&item, existed)
		item.ProductID = productID

		if existed {
			if err := tx.Omit("Product").Save(&item).Error; err != nil {
				return err
			}
		} else if err := tx.Omit("Product").Create(&item).Error; err != nil {
			return err
		}
		result = item
		return recordMovement(tx, model.NewMovement(&item, previous, reason, item.UpdatedBy))
	})
	if err != nil {
		return nil, translate(err)
	}
	return &result, nil
}

func (r *stockItemRepo) filtered(ctx context.Context, f StockItemFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.StockItem{})
	if f.Location != "" {
		q = q.Where("LOWER(location) LIKE ?", likePattern(f.Location))
	}
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.MinQuantity != nil {
		q = q.Where("quantity >= ?", *f.MinQuantity)
	}
	if f.MaxQuantity != nil {
		q = q.Where("quantity < ?", *f.MaxQuantity)
	}
	if f.ExpiresAfter != nil || f.ExpiresBefore != nil {
		q = q.Where("expiration_date IS NOT NULL")
	}
	if f.ExpiresAfter != nil {
		q = q.Where("expiration_date >= ?", *f.ExpiresAfter)
	}
	if f.ExpiresBefore != nil {
		q = q.Where("expiration_date <= ?", *f.ExpiresBefore)
	}
	return q
}

func (r *stockItemRepo) FindAll(ctx context.Context, f StockItemFilter) ([]model.StockItem, error) {
	q := r.filtered(ctx, f)
	switch f.OrderBy {
	case "quantity":
		q = q.Order("quantity ASC")
	case "expiration":
		q = q.Order("expiration_date ASC")
	default:
		q = q.Order("created_at DESC")
	}
	items := []model.StockItem{}
	err := f.Page.apply(q).Find(&items).Error
	return items, translate(err)
}

func (r *stockItemRepo) Count(ctx context.Context, f StockItemFilter) (int64, error) {
	var n int64
	err := r.filtered(ctx, f).Count(&n).Error
	return n, translate(err)
}

func (r *stockItemRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.StockItem, error) {
	var item model.StockItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *stockItemRepo) FindByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockItem, error) {
	items := []model.StockItem{}
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&items).Error
	return items, translate(err)
}

func (r *stockItemRepo) CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	return countWhere[model.StockItem](ctx, r.db, "product_id = ?", productID)
}

func (r *stockItemRepo) QuantityByProduct(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		ProductID uuid.UUID
		Total     int64
	}
	err := r.db.WithContext(ctx).Model(&model.StockItem{}).
		Select("product_id, COALESCE(SUM(quantity), 0) AS total").
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		out[row.ProductID] = row.Total
	}
	return out, nil
}

func (r *stockItemRepo) expiringQuery(ctx context.Context, f ExpiringFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Table("stock_items").
		Joins("JOIN products ON products.id = stock_items.product_id").
		Joins("JOIN categories ON categories.id = products.category_id").
		Where("stock_items.expiration_date IS NOT NULL").
		Where("stock_items.expiration_date >= ? AND stock_items.expiration_date <= ?", f.From, f.To)
	if f.CategoryID != nil {
		q = q.Where("products.category_id = ?", *f.CategoryID)
	}
	if f.ProductID != nil {
		q = q.Where("stock_items.product_id = ?", *f.ProductID)
	}
	return q
}

func (r *stockItemRepo) FindExpiring(ctx context.Context, f ExpiringFilter) ([]ExpiringItem, error) {
	items := []ExpiringItem{}
	err := f.Page.apply(r.expiringQuery(ctx, f)).
		Select(`stock_items.id AS stock_item_id,
			stock_items.batch_number AS batch_number,
			stock_items.quantity AS quantity,
			stock_items.expiration_date AS expiration_date,
			stock_items.location AS location,
			products.id AS product_id,
			products.name AS product_name,
			products.sku AS sku,
			categories.id AS category_id,
			categories.name AS category_name`).
		Order("stock_items.expiration_date ASC").
		Scan(&items).Error
	return items, translate(err)
}

func (r *stockItemRepo) CountExpiring(ctx context.Context, f ExpiringFilter) (int64, error) {
	var n int64
	err := r.expiringQuery(ctx, f).Count(&n).Error
	return n, translate(err)
}

func (r *stockItemRepo) CountExpiringByCategory(ctx context.Context, from, to time.Time) ([]CategoryCount, error) {
	counts := []CategoryCount{}
	err := r.expiringQuery(ctx, ExpiringFilter{From: from, To: to}).
		Select("categories.id AS category_id, categories.name AS category_name, COUNT(stock_items.id) AS count").
		Group("categories.id, categories.name").
		Order("categories.name ASC").
		Scan(&counts).Error
	return counts, translate(err)
}

func recordMovement(tx *gorm.DB, m *model.StockMovement) error {
	if m == nil {
		return nil
	}
	return tx.Create(m).Error
}
