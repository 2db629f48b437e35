package service

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"qualistock/internal/model"
	"qualistock/internal/repository"
)

const (
	dashboardListSize   = 10
	defaultMovementDays = 7
	maxMovementDays     = 90
)

type DashboardService interface {
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
	QualityIssues(ctx context.Context) ([]model.QualityCheck, error)
	ExpiringSoon(ctx context.Context) ([]model.StockItem, error)
	LowStock(ctx context.Context) ([]model.StockItem, error)
	GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error)
}

type DashboardStats struct {
	TotalProducts   int64 `json:"total_products"`
	TotalStockItems int64 `json:"total_stock_items"`
	QualityIssues   int64 `json:"quality_issues"`
	ExpiringSoon    int64 `json:"expiring_soon"`
	LowStockItems   int64 `json:"low_stock_items"`
}

type dashboardService struct {
	products  repository.ProductRepository
	stock     repository.StockItemRepository
	checks    repository.QualityCheckRepository
	movements repository.StockMovementRepository
	deps      Deps
}

func NewDashboardService(
	products repository.ProductRepository,
	stock repository.StockItemRepository,
	checks repository.QualityCheckRepository,
	movements repository.StockMovementRepository,
	deps Deps,
) DashboardService {
	return &dashboardService{products: products, stock: stock, checks: checks, movements: movements, deps: deps.withDefaults()}
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	return cached(ctx, s.deps, s.loadStats, "dashboard", "stats")
}

// loadStats runs the five counters concurrently.
func (s *dashboardService) loadStats(ctx context.Context) (*DashboardStats, error) {
	now := s.deps.Now()
	soon := now.Add(days(s.deps.Thresholds.ExpiringSoonDays))
	threshold := s.deps.Thresholds.LowStock

	stats := &DashboardStats{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalProducts, err = s.products.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalStockItems, err = s.stock.Count(ctx, repository.StockItemFilter{})
		return err
	})
	g.Go(func() (err error) {
		stats.QualityIssues, err = s.checks.Count(ctx, repository.QualityCheckFilter{Statuses: model.IssueStatuses})
		return err
	})
	g.Go(func() (err error) {
		stats.ExpiringSoon, err = s.stock.Count(ctx, repository.StockItemFilter{ExpiresAfter: &now, ExpiresBefore: &soon})
		return err
	})
	g.Go(func() (err error) {
		stats.LowStockItems, err = s.stock.Count(ctx, repository.StockItemFilter{MaxQuantity: &threshold})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *dashboardService) QualityIssues(ctx context.Context) ([]model.QualityCheck, error) {
	return s.checks.FindAll(ctx, repository.QualityCheckFilter{
		Statuses: model.IssueStatuses,
		Page:     repository.Page{Limit: dashboardListSize},
	})
}

func (s *dashboardService) ExpiringSoon(ctx context.Context) ([]model.StockItem, error) {
	now := s.deps.Now()
	soon := now.Add(days(s.deps.Thresholds.ExpiringSoonDays))
	return s.stock.FindAll(ctx, repository.StockItemFilter{
		ExpiresAfter:  &now,
		ExpiresBefore: &soon,
		OrderBy:       "expiration",
		Page:          repository.Page{Limit: dashboardListSize},
	})
}

func (s *dashboardService) LowStock(ctx context.Context) ([]model.StockItem, error) {
	threshold := s.deps.Thresholds.LowStock
	return s.stock.FindAll(ctx, repository.StockItemFilter{
		MaxQuantity: &threshold,
		OrderBy:     "quantity",
		Page:        repository.Page{Limit: dashboardListSize},
	})
}

// GetStockMovement returns daily inbound/outbound totals for the last n days.
func (s *dashboardService) GetStockMovement(ctx context.Context, n int) ([]repository.StockMovementData, error) {
	if n <= 0 {
		n = defaultMovementDays
	}
	if n > maxMovementDays {
		n = maxMovementDays
	}
	return cached(ctx, s.deps, func(ctx context.Context) ([]repository.StockMovementData, error) {
		endDate := s.deps.Now()
		startDate := endDate.Add(-time.Duration(n) * 24 * time.Hour)
		return s.movements.GetStockMovement(ctx, startDate, endDate)
	}, "dashboard", "stock-movement", strconv.Itoa(n))
}
