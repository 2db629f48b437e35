package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"qualistock/internal/observability"
	"qualistock/internal/repository"
	"qualistock/internal/service"
	"qualistock/internal/ws"
)

var defaultJobMetrics = observability.NewJobMetrics(nil)

// Publisher sends events to API instances, usually a *ws.Relay.
type Publisher interface {
	Publish(ctx context.Context, event ws.Event) error
}

// ExpiryGauge records the size of the critical expiration window.
type ExpiryGauge interface {
	SetCriticalExpiring(n int64)
}

// Handlers carries the services the background tasks run against.
type Handlers struct {
	Stock      service.StockService
	Expiration service.ExpirationService
	Dashboard  service.DashboardService
	Forecasts  service.ForecastService
	Cache      service.Invalidator
	Publisher  Publisher
	Gauge      ExpiryGauge
	Metrics    *observability.JobMetrics
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Registrations maps each task type to its handler.
func (h *Handlers) Registrations() []TaskHandler {
	return []TaskHandler{
		{Type: TaskStockInitialize, Handler: h.HandleStockInitialize},
		{Type: TaskExpirationScan, Handler: h.HandleExpirationScan},
		{Type: TaskAnalyticsWarmup, Handler: h.HandleAnalyticsWarmup},
	}
}

// HandleStockInitialize gives products without stock their placeholder row.
func (h *Handlers) HandleStockInitialize(ctx context.Context, _ *asynq.Task) (err error) {
	if h.Stock == nil {
		return errors.New("stock initialize: handler not configured")
	}
	tracker := h.metrics().Track(TaskStockInitialize)
	defer func() { err = tracker.End(err) }()

	created, err := h.Stock.InitializeMissing(ctx)
	if err != nil {
		h.logger(TaskStockInitialize).Error("initialize missing stock", slog.Any("error", err))
		return err
	}
	h.logger(TaskStockInitialize).Info("initialized missing stock", slog.Int("created", created))
	return nil
}

// HandleExpirationScan counts stock inside the critical window and raises
// an expiration_alert when anything is found.
func (h *Handlers) HandleExpirationScan(ctx context.Context, t *asynq.Task) (err error) {
	if h.Expiration == nil {
		return errors.New("expiration scan: handler not configured")
	}
	var payload ExpirationScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("expiration scan payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	tracker := h.metrics().Track(TaskExpirationScan)
	defer func() { err = tracker.End(err) }()
	logger := h.logger(TaskExpirationScan)

	var items []repository.ExpiringItem
	if payload.Days > 0 {
		items, err = h.Expiration.Items(ctx, service.ExpirationQuery{Days: payload.Days})
	} else {
		items, err = h.Expiration.Critical(ctx)
	}
	if err != nil {
		logger.Error("load expiring stock", slog.Any("error", err))
		return err
	}
	if h.Gauge != nil {
		h.Gauge.SetCriticalExpiring(int64(len(items)))
	}
	if len(items) == 0 {
		logger.Info("no stock in critical window")
		return nil
	}

	units := 0
	for _, it := range items {
		units += it.Quantity
	}
	event := ws.Event{
		Type:   ws.EventExpirationAlert,
		Action: "critical",
		Data: map[string]interface{}{
			"count": len(items),
			"units": units,
			"items": items,
		},
		Message:   fmt.Sprintf("%d stock items (%d units) are about to expire", len(items), units),
		Timestamp: h.now(),
	}
	if h.Publisher != nil {
		if err := h.Publisher.Publish(ctx, event); err != nil {
			logger.Warn("publish expiration alert", slog.Any("error", err))
			return err
		}
	}
	logger.Info("expiration alert raised", slog.Int("items", len(items)), slog.Int("units", units))
	return nil
}

// HandleAnalyticsWarmup moves the cache to a new version and recomputes the
// dashboard and forecast read models under it.
func (h *Handlers) HandleAnalyticsWarmup(ctx context.Context, _ *asynq.Task) (err error) {
	tracker := h.metrics().Track(TaskAnalyticsWarmup)
	defer func() { err = tracker.End(err) }()
	logger := h.logger(TaskAnalyticsWarmup)
	start := time.Now()

	if h.Cache != nil {
		if err := h.Cache.Bump(ctx); err != nil {
			logger.Error("bump analytics cache", slog.Any("error", err))
			return err
		}
	}

	warm := []struct {
		name string
		run  func(context.Context) error
	}{
		{"dashboard_stats", func(ctx context.Context) error {
			if h.Dashboard == nil {
				return nil
			}
			_, err := h.Dashboard.GetDashboardStats(ctx)
			return err
		}},
		{"stock_movement", func(ctx context.Context) error {
			if h.Dashboard == nil {
				return nil
			}
			_, err := h.Dashboard.GetStockMovement(ctx, 0)
			return err
		}},
		{"expiration_stats", func(ctx context.Context) error {
			if h.Expiration == nil {
				return nil
			}
			_, err := h.Expiration.Stats(ctx)
			return err
		}},
		{"top_products", func(ctx context.Context) error {
			if h.Forecasts == nil {
				return nil
			}
			_, err := h.Forecasts.TopProducts(ctx, 0)
			return err
		}},
	}
	for _, w := range warm {
		stepCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		err := w.run(stepCtx)
		cancel()
		if err != nil {
			logger.Error("warm read model", slog.String("model", w.name), slog.Any("error", err))
			return err
		}
	}
	logger.Info("completed analytics warmup", slog.Duration("duration", time.Since(start)))
	return nil
}

func (h *Handlers) logger(job string) *slog.Logger {
	if h.Logger != nil {
		return h.Logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}

func (h *Handlers) metrics() *observability.JobMetrics {
	if h.Metrics != nil {
		return h.Metrics
	}
	return defaultJobMetrics
}

func (h *Handlers) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now().UTC()
}

// RelayNotifier adapts a Publisher to the services' fire-and-forget Notifier.
type RelayNotifier struct {
	Publisher Publisher
	Logger    *slog.Logger
}

func (n RelayNotifier) Publish(event ws.Event) {
	if n.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.Publisher.Publish(ctx, event); err != nil && n.Logger != nil {
		n.Logger.Warn("relay event", slog.String("type", event.Type), slog.Any("error", err))
	}
}
