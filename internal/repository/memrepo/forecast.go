package memrepo

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"qualistock/internal/model"
	"qualistock/internal/repository"
)

type forecastRepo struct{ s *Store }

func (r *forecastRepo) Create(_ context.Context, f *model.Forecast) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[f.ProductID]; !ok {
		return repository.ErrInUse
	}
	r.s.stamp(&f.BaseModel, true)
	stored := *f
	stored.Product = nil
	r.s.forecasts[f.ID] = stored
	return nil
}

func (r *forecastRepo) FindAll(_ context.Context, f repository.ForecastFilter) ([]model.Forecast, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Forecast{}
	for _, fc := range r.s.forecasts {
		if f.ProductID != nil && fc.ProductID != *f.ProductID {
			continue
		}
		if f.MinConfidence != nil && fc.ConfidenceLevel < *f.MinConfidence {
			continue
		}
		if f.From != nil && fc.ForecastDate.Before(*f.From) {
			continue
		}
		if f.To != nil && fc.ForecastDate.After(*f.To) {
			continue
		}
		out = append(out, fc)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ForecastDate.Before(out[j].ForecastDate) })
	return window(out, f.Page), nil
}

func (r *forecastRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Forecast, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	fc, ok := r.s.forecasts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &fc, nil
}

func (r *forecastRepo) Update(_ context.Context, f *model.Forecast) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.forecasts[f.ID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.s.products[f.ProductID]; !ok {
		return repository.ErrInUse
	}
	r.s.stamp(&f.BaseModel, false)
	stored := *f
	stored.Product = nil
	r.s.forecasts[f.ID] = stored
	return nil
}

func (r *forecastRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.forecasts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.forecasts, id)
	return nil
}

func (r *forecastRepo) CountByProduct(_ context.Context, productID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, fc := range r.s.forecasts {
		if fc.ProductID == productID {
			n++
		}
	}
	return n, nil
}

func (r *forecastRepo) DemandSince(_ context.Context, from time.Time) ([]repository.ProductDemand, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	type acc struct {
		demand int64
		conf   float64
		n      int64
	}
	byID := map[uuid.UUID]*acc{}
	for _, fc := range r.s.forecasts {
		if fc.ForecastDate.Before(from) {
			continue
		}
		a, ok := byID[fc.ProductID]
		if !ok {
			a = &acc{}
			byID[fc.ProductID] = a
		}
		a.demand += int64(fc.PredictedDemand)
		a.conf += fc.ConfidenceLevel
		a.n++
	}
	out := make([]repository.ProductDemand, 0, len(byID))
	for id, a := range byID {
		out = append(out, repository.ProductDemand{
			ProductID:     id,
			TotalDemand:   a.demand,
			AvgConfidence: a.conf / float64(a.n),
			Forecasts:     a.n,
		})
	}
	return out, nil
}

type marketTrendRepo struct{ s *Store }

func (r *marketTrendRepo) Create(_ context.Context, t *model.MarketTrend) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[t.CategoryID]; !ok {
		return repository.ErrInUse
	}
	r.s.stamp(&t.BaseModel, true)
	stored := *t
	stored.Category = nil
	r.s.trends[t.ID] = stored
	return nil
}

func (r *marketTrendRepo) FindAll(_ context.Context, f repository.MarketTrendFilter) ([]model.MarketTrend, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.MarketTrend{}
	for _, t := range r.s.trends {
		if f.CategoryID != nil && t.CategoryID != *f.CategoryID {
			continue
		}
		if f.MinImpact != nil && t.ImpactLevel < *f.MinImpact {
			continue
		}
		if f.From != nil && t.TrendDate.Before(*f.From) {
			continue
		}
		if f.To != nil && t.TrendDate.After(*f.To) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TrendDate.After(out[j].TrendDate) })
	return window(out, f.Page), nil
}

func (r *marketTrendRepo) FindByID(_ context.Context, id uuid.UUID) (*model.MarketTrend, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.trends[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *marketTrendRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.trends[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.trends, id)
	return nil
}

func (r *marketTrendRepo) CountByCategory(_ context.Context, categoryID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, t := range r.s.trends {
		if t.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}
