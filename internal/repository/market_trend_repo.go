package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"qualistock/internal/model"
)

type MarketTrendRepository interface {
	Create(ctx context.Context, trend *model.MarketTrend) error
	FindAll(ctx context.Context, f MarketTrendFilter) ([]model.MarketTrend, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.MarketTrend, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

type marketTrendRepo struct {
	db *gorm.DB
}

func NewMarketTrendRepo(db *gorm.DB) MarketTrendRepository {
	return &marketTrendRepo{db}
}

func (r *marketTrendRepo) Create(ctx context.Context, trend *model.MarketTrend) error {
	return translate(r.db.WithContext(ctx).Omit("Category").Create(trend).Error)
}

func (r *marketTrendRepo) FindAll(ctx context.Context, f MarketTrendFilter) ([]model.MarketTrend, error) {
	q := r.db.WithContext(ctx).Model(&model.MarketTrend{})
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.MinImpact != nil {
		q = q.Where("impact_level >= ?", *f.MinImpact)
	}
	if f.From != nil {
		q = q.Where("trend_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("trend_date <= ?", *f.To)
	}
	trends := []model.MarketTrend{}
	err := f.Page.apply(q).Order("trend_date DESC").Find(&trends).Error
	return trends, translate(err)
}

func (r *marketTrendRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.MarketTrend, error) {
	var trend model.MarketTrend
	if err := r.db.WithContext(ctx).First(&trend, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &trend, nil
}

func (r *marketTrendRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID[model.MarketTrend](ctx, r.db, id)
}

func (r *marketTrendRepo) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	return countWhere[model.MarketTrend](ctx, r.db, "category_id = ?", categoryID)
}
