package repository

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"qualistock/internal/model"
)

type StockMovementRepository interface {
	FindAll(ctx context.Context, f MovementFilter) ([]model.StockMovement, error)
	GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error)
}

type stockMovementRepo struct {
	db *gorm.DB
}

func NewStockMovementRepo(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db}
}

func (r *stockMovementRepo) FindAll(ctx context.Context, f MovementFilter) ([]model.StockMovement, error) {
	q := r.db.WithContext(ctx).Model(&model.StockMovement{})
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.StockItemID != nil {
		q = q.Where("stock_item_id = ?", *f.StockItemID)
	}
	movements := []model.StockMovement{}
	err := f.Page.apply(q).Order("created_at DESC").Find(&movements).Error
	return movements, translate(err)
}

// GetStockMovement buckets movements per UTC day. Bucketing happens here
// rather than with DATE() so postgres and mysql return the same shape.
func (r *stockMovementRepo) GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error) {
	var movements []model.StockMovement
	err := r.db.WithContext(ctx).
		Select("created_at", "type", "quantity").
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Find(&movements).Error
	if err != nil {
		return nil, translate(err)
	}
	return BucketMovements(movements), nil
}

// BucketMovements folds movements into per-day inbound/outbound totals, oldest first.
func BucketMovements(movements []model.StockMovement) []StockMovementData {
	byDay := map[string]*StockMovementData{}
	for _, m := range movements {
		day := m.CreatedAt.UTC().Format("2006-01-02")
		point, ok := byDay[day]
		if !ok {
			point = &StockMovementData{Date: day}
			byDay[day] = point
		}
		if m.Type == model.MovementIn {
			point.Inbound += m.Quantity
		} else {
			point.Outbound += m.Quantity
		}
	}
	results := make([]StockMovementData, 0, len(byDay))
	for _, p := range byDay {
		results = append(results, *p)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Date < results[j].Date })
	return results
}
