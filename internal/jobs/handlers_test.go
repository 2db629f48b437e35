package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualistock/internal/cache"
	"qualistock/internal/model"
	"qualistock/internal/observability"
	"qualistock/internal/repository"
	"qualistock/internal/repository/memrepo"
	"qualistock/internal/service"
	"qualistock/internal/ws"
)

var now = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

type publisher struct {
	mu     sync.Mutex
	events []ws.Event
	err    error
}

func (p *publisher) Publish(_ context.Context, e ws.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

type gauge struct{ n int64 }

func (g *gauge) SetCriticalExpiring(n int64) { g.n = n }

type fixture struct {
	store    *memrepo.Store
	registry *prometheus.Registry
	pub      *publisher
	gauge    *gauge
	stock    service.StockService
	handlers *Handlers
	product  *model.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memrepo.New()
	store.Now = func() time.Time { return now }
	deps := service.Deps{Now: func() time.Time { return now }}

	f := &fixture{store: store, registry: prometheus.NewRegistry(), pub: &publisher{}, gauge: &gauge{}}
	categories := service.NewCategoryService(store.Categories(), store.Products(), store.MarketTrends(), deps)
	products := service.NewProductService(store.Products(), store.Categories(), store.StockItems(), store.QualityChecks(), store.Forecasts(), deps)
	f.stock = service.NewStockService(store.StockItems(), store.Products(), store.Movements(), deps)

	food, err := categories.Create(ctx, service.SystemActor, &service.CategoryRequest{Name: "Food"})
	require.NoError(t, err)
	f.product, err = products.Create(ctx, service.SystemActor, &service.ProductRequest{Name: "Apple", SKU: "FOOD001", CategoryID: food.ID, UnitPrice: 1.5})
	require.NoError(t, err)

	f.handlers = &Handlers{
		Stock:      f.stock,
		Expiration: service.NewExpirationService(store.StockItems(), deps),
		Dashboard:  service.NewDashboardService(store.Products(), store.StockItems(), store.QualityChecks(), store.Movements(), deps),
		Forecasts:  service.NewForecastService(store.Forecasts(), store.MarketTrends(), store.Products(), store.Categories(), store.StockItems(), deps),
		Publisher:  f.pub,
		Gauge:      f.gauge,
		Metrics:    observability.NewJobMetrics(f.registry),
		Clock:      func() time.Time { return now },
	}
	return f
}

func (f *fixture) stockExpiring(t *testing.T, qty int, in time.Duration) {
	t.Helper()
	at := now.Add(in)
	_, err := f.stock.Create(context.Background(), service.SystemActor, &service.StockItemRequest{
		ProductID: f.product.ID, Quantity: qty, Location: "Cold Room", ExpirationDate: &at,
	})
	require.NoError(t, err)
}

func TestExpirationScanPublishesAlert(t *testing.T) {
	f := newFixture(t)
	f.stockExpiring(t, 4, 2*24*time.Hour)
	f.stockExpiring(t, 6, 5*24*time.Hour)
	f.stockExpiring(t, 50, 60*24*time.Hour)

	task, err := NewExpirationScanTask(0)
	require.NoError(t, err)
	require.NoError(t, f.handlers.HandleExpirationScan(context.Background(), task))

	assert.EqualValues(t, 2, f.gauge.n)
	require.Len(t, f.pub.events, 1)
	ev := f.pub.events[0]
	assert.Equal(t, ws.EventExpirationAlert, ev.Type)
	assert.Equal(t, "critical", ev.Action)
	assert.Equal(t, "2 stock items (10 units) are about to expire", ev.Message)
	assert.Equal(t, now, ev.Timestamp)

	n, err := testutil.GatherAndCount(f.registry, "qualistock_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExpirationScanCustomWindow(t *testing.T) {
	f := newFixture(t)
	f.stockExpiring(t, 50, 60*24*time.Hour)

	task, err := NewExpirationScanTask(90)
	require.NoError(t, err)
	require.NoError(t, f.handlers.HandleExpirationScan(context.Background(), task))
	assert.EqualValues(t, 1, f.gauge.n)
	assert.Len(t, f.pub.events, 1)
}

func TestExpirationScanQuietWhenNothingExpires(t *testing.T) {
	f := newFixture(t)
	f.stockExpiring(t, 50, 60*24*time.Hour)

	task, err := NewExpirationScanTask(0)
	require.NoError(t, err)
	require.NoError(t, f.handlers.HandleExpirationScan(context.Background(), task))
	assert.Zero(t, f.gauge.n)
	assert.Empty(t, f.pub.events)
}

func TestExpirationScanBadPayloadSkipsRetry(t *testing.T) {
	f := newFixture(t)
	err := f.handlers.HandleExpirationScan(context.Background(), asynq.NewTask(TaskExpirationScan, []byte("{")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestExpirationScanPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.stockExpiring(t, 4, 24*time.Hour)
	f.pub.err = errors.New("redis down")

	task, err := NewExpirationScanTask(0)
	require.NoError(t, err)
	assert.Error(t, f.handlers.HandleExpirationScan(context.Background(), task))

	failures, err := testutil.GatherAndCount(f.registry, "qualistock_jobs_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, failures)
}

func TestStockInitializeCreatesPlaceholders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bare := &model.Product{Name: "Pear", SKU: "FOOD002", CategoryID: f.product.CategoryID, UnitPrice: 2}
	require.NoError(t, f.store.Products().Create(ctx, bare))

	require.NoError(t, f.handlers.HandleStockInitialize(ctx, NewStockInitializeTask()))

	items, err := f.stock.List(ctx, service.StockQuery{ProductID: &bare.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Zero(t, items[0].Quantity)

	// second run has nothing left to do
	require.NoError(t, f.handlers.HandleStockInitialize(ctx, NewStockInitializeTask()))
	items, err = f.stock.List(ctx, service.StockQuery{Page: repository.Page{}})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestAnalyticsWarmup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	c := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)

	clock := now
	deps := service.Deps{Analytics: c, Now: func() time.Time { return clock }}
	dashboard := service.NewDashboardService(f.store.Products(), f.store.StockItems(), f.store.QualityChecks(), f.store.Movements(), deps)
	h := &Handlers{
		Dashboard:  dashboard,
		Expiration: service.NewExpirationService(f.store.StockItems(), deps),
		Forecasts:  service.NewForecastService(f.store.Forecasts(), f.store.MarketTrends(), f.store.Products(), f.store.Categories(), f.store.StockItems(), deps),
		Cache:      c,
		Metrics:    observability.NewJobMetrics(prometheus.NewRegistry()),
	}

	f.stockExpiring(t, 5, 40*24*time.Hour)
	stats, err := dashboard.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.ExpiringSoon)

	// the item enters the 30 day window but the cached stats do not see it
	clock = now.Add(15 * 24 * time.Hour)
	stats, err = dashboard.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.ExpiringSoon)

	before, err := c.Version(ctx)
	require.NoError(t, err)
	require.NoError(t, h.HandleAnalyticsWarmup(ctx, NewAnalyticsWarmupTask()))
	after, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Greater(t, after, before)

	raw, err := mr.Get(fmt.Sprintf("qualistock:dashboard:stats:v%d", after))
	require.NoError(t, err)
	assert.Contains(t, raw, `"expiring_soon":1`)
	assert.True(t, mr.Exists(fmt.Sprintf("qualistock:forecast:top-products:10:v%d", after)))

	stats, err = dashboard.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.ExpiringSoon)
}

func TestAnalyticsWarmupStopsWhenBumpFails(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	c := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	f.handlers.Cache = c
	mr.SetError("READONLY")

	assert.Error(t, f.handlers.HandleAnalyticsWarmup(context.Background(), NewAnalyticsWarmupTask()))
}

func TestAnalyticsWarmupWithoutServices(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.handlers.HandleAnalyticsWarmup(context.Background(), NewAnalyticsWarmupTask()))

	empty := &Handlers{Metrics: observability.NewJobMetrics(prometheus.NewRegistry())}
	assert.NoError(t, empty.HandleAnalyticsWarmup(context.Background(), NewAnalyticsWarmupTask()))
	assert.Error(t, empty.HandleStockInitialize(context.Background(), NewStockInitializeTask()))
}

func TestNewTask(t *testing.T) {
	for _, typ := range TaskTypes {
		task, err := NewTask(typ)
		require.NoError(t, err, typ)
		assert.Equal(t, typ, task.Type())
	}
	_, err := NewTask("reports:nightly")
	assert.ErrorIs(t, err, ErrUnknownTask)

	_, err = NewExpirationScanTask(-1)
	assert.Error(t, err)
}

func TestRegistrationsCoverTaskTypes(t *testing.T) {
	h := &Handlers{}
	var got []string
	for _, r := range h.Registrations() {
		got = append(got, r.Type)
		assert.NotNil(t, r.Handler)
	}
	assert.Equal(t, TaskTypes, got)
}

func TestSchedule(t *testing.T) {
	cron, err := Schedule("30 5 * * *", "0 6 * * *", "")
	require.NoError(t, err)
	require.Len(t, cron, 3)
	assert.Equal(t, TaskStockInitialize, cron[0].Task.Type())
	assert.Equal(t, "0 6 * * *", cron[1].Spec)
	assert.Empty(t, cron[2].Spec)
}

func TestRelayNotifier(t *testing.T) {
	pub := &publisher{}
	RelayNotifier{Publisher: pub}.Publish(ws.Event{Type: ws.EventStockUpdate})
	require.Len(t, pub.events, 1)

	pub.err = errors.New("down")
	assert.NotPanics(t, func() { RelayNotifier{Publisher: pub}.Publish(ws.Event{Type: ws.EventStockUpdate}) })
	assert.NotPanics(t, func() { RelayNotifier{}.Publish(ws.Event{}) })
}
