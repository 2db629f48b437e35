package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"qualistock/internal/model"
	"qualistock/internal/repository"
)

type ExpirationService interface {
	Items(ctx context.Context, q ExpirationQuery) ([]repository.ExpiringItem, error)
	Stats(ctx context.Context) (*ExpirationStats, error)
	Critical(ctx context.Context) ([]repository.ExpiringItem, error)
	CountCritical(ctx context.Context) (int64, error)
}

type ExpirationQuery struct {
	Days       int
	CategoryID *uuid.UUID
	ProductID  *uuid.UUID
	repository.Page
}

type ExpirationStats struct {
	TotalExpiring    int64                      `json:"total_expiring"`
	CriticalExpiring int64                      `json:"critical_expiring"`
	ThisWeekExpiring int64                      `json:"this_week_expiring"`
	ByCategory       []repository.CategoryCount `json:"by_category"`
	TimeRanges       map[string]int64           `json:"time_ranges"`
}

type expirationService struct {
	stock repository.StockItemRepository
	deps  Deps
}

func NewExpirationService(stock repository.StockItemRepository, deps Deps) ExpirationService {
	return &expirationService{stock: stock, deps: deps.withDefaults()}
}

func (s *expirationService) Items(ctx context.Context, q ExpirationQuery) ([]repository.ExpiringItem, error) {
	n := q.Days
	if n <= 0 {
		n = s.deps.Thresholds.WindowDays
	}
	now := s.deps.Now()
	items, err := s.stock.FindExpiring(ctx, repository.ExpiringFilter{
		From:       now,
		To:         now.Add(days(n)),
		CategoryID: q.CategoryID,
		ProductID:  q.ProductID,
		Page:       q.Page,
	})
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].DaysRemaining = model.DaysBetween(now, items[i].ExpirationDate)
	}
	return items, nil
}

func (s *expirationService) Critical(ctx context.Context) ([]repository.ExpiringItem, error) {
	return s.Items(ctx, ExpirationQuery{Days: s.deps.Thresholds.CriticalDays})
}

func (s *expirationService) CountCritical(ctx context.Context) (int64, error) {
	now := s.deps.Now()
	return s.stock.CountExpiring(ctx, repository.ExpiringFilter{From: now, To: now.Add(days(s.deps.Thresholds.CriticalDays))})
}

func (s *expirationService) Stats(ctx context.Context) (*ExpirationStats, error) {
	return cached(ctx, s.deps, s.stats, "expiration", "stats")
}

// weekBounds returns Monday 00:00 UTC of now's week and the Monday after.
func weekBounds(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	offset := (int(now.Weekday()) + 6) % 7
	start := time.Date(now.Year(), now.Month(), now.Day()-offset, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 7)
}

func (s *expirationService) stats(ctx context.Context) (*ExpirationStats, error) {
	now := s.deps.Now()
	t := s.deps.Thresholds
	soon := t.ExpiringSoonDays
	weekStart, weekEnd := weekBounds(now)

	count := func(from, to time.Time) func(context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) {
			return s.stock.CountExpiring(ctx, repository.ExpiringFilter{From: from, To: to})
		}
	}
	// Later buckets start just after the previous bucket's end.
	after := func(n int) time.Time { return now.Add(days(n) + time.Nanosecond) }

	stats := &ExpirationStats{TimeRanges: map[string]int64{}}
	var bucket0, bucket1, bucket2 int64
	jobs := []struct {
		dst  *int64
		load func(context.Context) (int64, error)
	}{
		{&stats.TotalExpiring, count(now, now.Add(days(t.WindowDays)))},
		{&stats.CriticalExpiring, count(now, now.Add(days(t.CriticalDays)))},
		{&stats.ThisWeekExpiring, count(weekStart, weekEnd.Add(-time.Nanosecond))},
		{&bucket0, count(now, now.Add(days(t.CriticalDays)))},
		{&bucket1, count(after(t.CriticalDays), now.Add(days(soon)))},
		{&bucket2, count(after(soon), now.Add(days(t.WindowDays)))},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		g.Go(func() error {
			n, err := job.load(gctx)
			*job.dst = n
			return err
		})
	}
	g.Go(func() error {
		rows, err := s.stock.CountExpiringByCategory(gctx, now, now.Add(days(t.WindowDays)))
		stats.ByCategory = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if stats.ByCategory == nil {
		stats.ByCategory = []repository.CategoryCount{}
	}
	stats.TimeRanges["0-7_days"] = bucket0
	stats.TimeRanges["8-30_days"] = bucket1
	stats.TimeRanges["31-90_days"] = bucket2
	return stats, nil
}
