package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"qualistock/internal/model"
)

type ForecastRepository interface {
	Create(ctx context.Context, forecast *model.Forecast) error
	FindAll(ctx context.Context, f ForecastFilter) ([]model.Forecast, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Forecast, error)
	Update(ctx context.Context, forecast *model.Forecast) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	// DemandSince aggregates forecasts dated at or after from, per product.
	DemandSince(ctx context.Context, from time.Time) ([]ProductDemand, error)
}

type forecastRepo struct {
	db *gorm.DB
}

func NewForecastRepo(db *gorm.DB) ForecastRepository {
	return &forecastRepo{db}
}

func (r *forecastRepo) Create(ctx context.Context, forecast *model.Forecast) error {
	return translate(r.db.WithContext(ctx).Omit("Product").Create(forecast).Error)
}

func (r *forecastRepo) FindAll(ctx context.Context, f ForecastFilter) ([]model.Forecast, error) {
	q := r.db.WithContext(ctx).Model(&model.Forecast{})
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.MinConfidence != nil {
		q = q.Where("confidence_level >= ?", *f.MinConfidence)
	}
	if f.From != nil {
		q = q.Where("forecast_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("forecast_date <= ?", *f.To)
	}
	forecasts := []model.Forecast{}
	err := f.Page.apply(q).Order("forecast_date ASC").Find(&forecasts).Error
	return forecasts, translate(err)
}

func (r *forecastRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Forecast, error) {
	var forecast model.Forecast
	if err := r.db.WithContext(ctx).First(&forecast, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &forecast, nil
}

func (r *forecastRepo) Update(ctx context.Context, forecast *model.Forecast) error {
	return translate(r.db.WithContext(ctx).Omit("Product").Save(forecast).Error)
}

func (r *forecastRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID[model.Forecast](ctx, r.db, id)
}

func (r *forecastRepo) CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	return countWhere[model.Forecast](ctx, r.db, "product_id = ?", productID)
}

func (r *forecastRepo) DemandSince(ctx context.Context, from time.Time) ([]ProductDemand, error) {
	rows := []ProductDemand{}
	err := r.db.WithContext(ctx).Model(&model.Forecast{}).
		Select(`product_id,
			COALESCE(SUM(predicted_demand), 0) AS total_demand,
			COALESCE(AVG(confidence_level), 0) AS avg_confidence,
			COUNT(*) AS forecasts`).
		Where("forecast_date >= ?", from).
		Group("product_id").
		Scan(&rows).Error
	return rows, translate(err)
}
