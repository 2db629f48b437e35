package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"qualistock/internal/model"
	"qualistock/internal/repository"
	"qualistock/internal/ws"
)

const defaultTopProducts = 10

type ForecastService interface {
	Create(ctx context.Context, actor Actor, req *ForecastRequest) (*model.Forecast, error)
	List(ctx context.Context, f repository.ForecastFilter) ([]model.Forecast, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Forecast, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req *ForecastUpdate) (*model.Forecast, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	ByProduct(ctx context.Context, productID uuid.UUID, page repository.Page) ([]model.Forecast, error)
	Future(ctx context.Context, days int) ([]model.Forecast, error)
	DateRange(ctx context.Context, from, to time.Time) ([]model.Forecast, error)
	Monthly(ctx context.Context) (map[string][]model.Forecast, error)
	TopProducts(ctx context.Context, limit int) ([]TopProduct, error)

	CreateTrend(ctx context.Context, actor Actor, req *MarketTrendRequest) (*model.MarketTrend, error)
	ListTrends(ctx context.Context, f repository.MarketTrendFilter) ([]model.MarketTrend, error)
}

type ForecastRequest struct {
	ProductID       uuid.UUID `json:"product_id" validate:"uuid_required"`
	ForecastDate    time.Time `json:"forecast_date" validate:"required"`
	PredictedDemand int       `json:"predicted_demand" validate:"gte=0"`
	ConfidenceLevel float64   `json:"confidence_level" validate:"gte=0,lte=1"`
	Notes           string    `json:"notes"`
}

type ForecastUpdate struct {
	ProductID       *uuid.UUID `json:"product_id"`
	ForecastDate    *time.Time `json:"forecast_date"`
	PredictedDemand *int       `json:"predicted_demand" validate:"omitempty,gte=0"`
	ConfidenceLevel *float64   `json:"confidence_level" validate:"omitempty,gte=0,lte=1"`
	Notes           *string    `json:"notes"`
}

type MarketTrendRequest struct {
	CategoryID       uuid.UUID  `json:"category_id" validate:"uuid_required"`
	TrendDate        *time.Time `json:"trend_date"`
	TrendDescription string     `json:"trend_description" validate:"required,notblank"`
	ImpactLevel      float64    `json:"impact_level" validate:"gte=0,lte=1"`
}

// TopProduct ranks a product by its future predicted demand.
type TopProduct struct {
	ProductID            uuid.UUID `json:"product_id"`
	ProductName          string    `json:"product_name"`
	CategoryID           uuid.UUID `json:"category_id"`
	SKU                  string    `json:"sku"`
	TotalPredictedDemand int64     `json:"total_predicted_demand"`
	CurrentStock         int64     `json:"current_stock"`
	StockDifference      int64     `json:"stock_difference"`
	AvgConfidence        float64   `json:"avg_confidence"`
}

type forecastService struct {
	forecasts  repository.ForecastRepository
	trends     repository.MarketTrendRepository
	products   repository.ProductRepository
	categories repository.CategoryRepository
	stock      repository.StockItemRepository
	deps       Deps
}

func NewForecastService(
	forecasts repository.ForecastRepository,
	trends repository.MarketTrendRepository,
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	stock repository.StockItemRepository,
	deps Deps,
) ForecastService {
	return &forecastService{
		forecasts:  forecasts,
		trends:     trends,
		products:   products,
		categories: categories,
		stock:      stock,
		deps:       deps.withDefaults(),
	}
}

func (s *forecastService) Create(ctx context.Context, actor Actor, req *ForecastRequest) (*model.Forecast, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if _, err := s.products.FindByID(ctx, req.ProductID); err != nil {
		return nil, lookupErr(err, "Product")
	}
	forecast := &model.Forecast{
		ProductID:       req.ProductID,
		ForecastDate:    req.ForecastDate.UTC(),
		PredictedDemand: req.PredictedDemand,
		ConfidenceLevel: req.ConfidenceLevel,
		Notes:           req.Notes,
	}
	forecast.Touch(actor.Audit())
	if err := s.forecasts.Create(ctx, forecast); err != nil {
		return nil, writeErr(err, "Forecast")
	}
	s.deps.changed(ctx, ws.Event{Type: ws.EventForecastUpdate, Action: "forecast_created", Data: forecast, User: actor.eventUser()})
	return forecast, nil
}

func (s *forecastService) List(ctx context.Context, f repository.ForecastFilter) ([]model.Forecast, error) {
	return s.forecasts.FindAll(ctx, f)
}

func (s *forecastService) Get(ctx context.Context, id uuid.UUID) (*model.Forecast, error) {
	forecast, err := s.forecasts.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Forecast")
	}
	return forecast, nil
}

func (s *forecastService) Update(ctx context.Context, actor Actor, id uuid.UUID, req *ForecastUpdate) (*model.Forecast, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	forecast, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.ProductID != nil {
		if _, err := s.products.FindByID(ctx, *req.ProductID); err != nil {
			return nil, lookupErr(err, "Product")
		}
		forecast.ProductID = *req.ProductID
	}
	if req.ForecastDate != nil {
		forecast.ForecastDate = req.ForecastDate.UTC()
	}
	if req.PredictedDemand != nil {
		forecast.PredictedDemand = *req.PredictedDemand
	}
	if req.ConfidenceLevel != nil {
		forecast.ConfidenceLevel = *req.ConfidenceLevel
	}
	if req.Notes != nil {
		forecast.Notes = *req.Notes
	}
	forecast.Touch(actor.Audit())
	if err := s.forecasts.Update(ctx, forecast); err != nil {
		return nil, writeErr(err, "Forecast")
	}
	s.deps.changed(ctx, ws.Event{Type: ws.EventForecastUpdate, Action: "forecast_updated", Data: forecast, User: actor.eventUser()})
	return forecast, nil
}

func (s *forecastService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.forecasts.Delete(ctx, id); err != nil {
		return writeErr(err, "Forecast")
	}
	s.deps.changed(ctx, ws.Event{
		Type:   ws.EventForecastUpdate,
		Action: "forecast_deleted",
		Data:   map[string]interface{}{"id": id},
		User:   actor.eventUser(),
	})
	return nil
}

func (s *forecastService) ByProduct(ctx context.Context, productID uuid.UUID, page repository.Page) ([]model.Forecast, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, lookupErr(err, "Product")
	}
	return s.forecasts.FindAll(ctx, repository.ForecastFilter{ProductID: &productID, Page: page})
}

func (s *forecastService) Future(ctx context.Context, n int) ([]model.Forecast, error) {
	if n <= 0 {
		return nil, invalid("days must be positive")
	}
	now := s.deps.Now()
	until := now.Add(days(n))
	return s.forecasts.FindAll(ctx, repository.ForecastFilter{From: &now, To: &until})
}

func (s *forecastService) DateRange(ctx context.Context, from, to time.Time) ([]model.Forecast, error) {
	if to.Before(from) {
		return nil, invalid("end_date must not be before start_date")
	}
	return s.forecasts.FindAll(ctx, repository.ForecastFilter{From: &from, To: &to})
}

// Monthly groups future forecasts by "YYYY-MM".
func (s *forecastService) Monthly(ctx context.Context) (map[string][]model.Forecast, error) {
	now := s.deps.Now()
	forecasts, err := s.forecasts.FindAll(ctx, repository.ForecastFilter{From: &now})
	if err != nil {
		return nil, err
	}
	out := map[string][]model.Forecast{}
	for _, f := range forecasts {
		key := f.ForecastDate.UTC().Format("2006-01")
		out[key] = append(out[key], f)
	}
	return out, nil
}

func (s *forecastService) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = defaultTopProducts
	}
	return cached(ctx, s.deps, func(ctx context.Context) ([]TopProduct, error) {
		return s.topProducts(ctx, limit)
	}, "forecast", "top-products", strconv.Itoa(limit))
}

// topProducts ranks every product by future demand; products without
// future forecasts rank with zero demand.
func (s *forecastService) topProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	products, err := s.products.FindAll(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []TopProduct{}, nil
	}
	rows, err := s.forecasts.DemandSince(ctx, s.deps.Now())
	if err != nil {
		return nil, err
	}
	stock, err := s.stock.QuantityByProduct(ctx)
	if err != nil {
		return nil, err
	}
	demand := make(map[uuid.UUID]repository.ProductDemand, len(rows))
	for _, d := range rows {
		demand[d.ProductID] = d
	}

	out := make([]TopProduct, 0, len(products))
	for _, p := range products {
		d := demand[p.ID]
		current := stock[p.ID]
		out = append(out, TopProduct{
			ProductID:            p.ID,
			ProductName:          p.Name,
			CategoryID:           p.CategoryID,
			SKU:                  p.SKU,
			TotalPredictedDemand: d.TotalDemand,
			CurrentStock:         current,
			StockDifference:      current - d.TotalDemand,
			AvgConfidence:        d.AvgConfidence,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalPredictedDemand != out[j].TotalPredictedDemand {
			return out[i].TotalPredictedDemand > out[j].TotalPredictedDemand
		}
		return out[i].SKU < out[j].SKU
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *forecastService) CreateTrend(ctx context.Context, actor Actor, req *MarketTrendRequest) (*model.MarketTrend, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if _, err := s.categories.FindByID(ctx, req.CategoryID); err != nil {
		return nil, lookupErr(err, "Category")
	}
	trend := &model.MarketTrend{
		CategoryID:       req.CategoryID,
		TrendDate:        s.deps.Now(),
		TrendDescription: strings.TrimSpace(req.TrendDescription),
		ImpactLevel:      req.ImpactLevel,
	}
	if req.TrendDate != nil {
		trend.TrendDate = req.TrendDate.UTC()
	}
	trend.Touch(actor.Audit())
	if err := s.trends.Create(ctx, trend); err != nil {
		return nil, writeErr(err, "Market trend")
	}
	s.deps.changed(ctx, ws.Event{Type: ws.EventForecastUpdate, Action: "market_trend_created", Data: trend, User: actor.eventUser()})
	return trend, nil
}

func (s *forecastService) ListTrends(ctx context.Context, f repository.MarketTrendFilter) ([]model.MarketTrend, error) {
	return s.trends.FindAll(ctx, f)
}
