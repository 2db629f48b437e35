package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"qualistock/internal/model"
)

type QualityCheckRepository interface {
	Create(ctx context.Context, check *model.QualityCheck) error
	FindAll(ctx context.Context, f QualityCheckFilter) ([]model.QualityCheck, error)
	Count(ctx context.Context, f QualityCheckFilter) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.QualityCheck, error)
	Update(ctx context.Context, check *model.QualityCheck) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	CountByChecker(ctx context.Context, userID uuid.UUID) (int64, error)
	CountByStatus(ctx context.Context) (map[model.QualityStatus]int64, error)
	IssuesByProduct(ctx context.Context, limit int) ([]ProductIssueCount, error)
}

type qualityCheckRepo struct {
	db *gorm.DB
}

func NewQualityCheckRepo(db *gorm.DB) QualityCheckRepository {
	return &qualityCheckRepo{db}
}

func (r *qualityCheckRepo) Create(ctx context.Context, check *model.QualityCheck) error {
	return translate(r.db.WithContext(ctx).Omit("Product", "Checker").Create(check).Error)
}

func (r *qualityCheckRepo) filtered(ctx context.Context, f QualityCheckFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.QualityCheck{})
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.BatchNumber != "" {
		q = q.Where("LOWER(batch_number) LIKE ?", likePattern(f.BatchNumber))
	}
	if f.BatchExact != "" {
		q = q.Where("batch_number = ?", f.BatchExact)
	}
	return q
}

func (r *qualityCheckRepo) FindAll(ctx context.Context, f QualityCheckFilter) ([]model.QualityCheck, error) {
	checks := []model.QualityCheck{}
	err := f.Page.apply(r.filtered(ctx, f)).
		Preload("Product").
		Order("check_date DESC").
		Find(&checks).Error
	return checks, translate(err)
}

func (r *qualityCheckRepo) Count(ctx context.Context, f QualityCheckFilter) (int64, error) {
	var n int64
	err := r.filtered(ctx, f).Count(&n).Error
	return n, translate(err)
}

func (r *qualityCheckRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.QualityCheck, error) {
	var check model.QualityCheck
	if err := r.db.WithContext(ctx).Preload("Product").First(&check, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &check, nil
}

func (r *qualityCheckRepo) Update(ctx context.Context, check *model.QualityCheck) error {
	return translate(r.db.WithContext(ctx).Omit("Product", "Checker").Save(check).Error)
}

func (r *qualityCheckRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID[model.QualityCheck](ctx, r.db, id)
}

func (r *qualityCheckRepo) CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	return countWhere[model.QualityCheck](ctx, r.db, "product_id = ?", productID)
}

func (r *qualityCheckRepo) CountByChecker(ctx context.Context, userID uuid.UUID) (int64, error) {
	return countWhere[model.QualityCheck](ctx, r.db, "checked_by = ?", userID)
}

func (r *qualityCheckRepo) CountByStatus(ctx context.Context) (map[model.QualityStatus]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&model.QualityCheck{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make(map[model.QualityStatus]int64, len(model.QualityStatuses))
	for _, s := range model.QualityStatuses {
		out[s] = 0
	}
	for _, row := range rows {
		out[model.QualityStatus(row.Status)] = row.Total
	}
	return out, nil
}

func (r *qualityCheckRepo) IssuesByProduct(ctx context.Context, limit int) ([]ProductIssueCount, error) {
	rows := []ProductIssueCount{}
	q := r.db.WithContext(ctx).Table("quality_checks").
		Joins("JOIN products ON products.id = quality_checks.product_id").
		Where("quality_checks.status IN ?", model.IssueStatuses).
		Select(`products.id AS product_id,
			products.name AS product_name,
			products.sku AS sku,
			SUM(CASE WHEN quality_checks.status = ? THEN 1 ELSE 0 END) AS poor_count,
			SUM(CASE WHEN quality_checks.status = ? THEN 1 ELSE 0 END) AS critical_count,
			COUNT(quality_checks.id) AS total_issues`, model.QualityPoor, model.QualityCritical).
		Group("products.id, products.name, products.sku").
		Order("total_issues DESC, products.name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Scan(&rows).Error
	return rows, translate(err)
}
