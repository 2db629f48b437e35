package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"qualistock/internal/ws"
)

// Actor is the user a service call runs on behalf of.
type Actor struct {
	ID       uuid.UUID
	Username string
	IsAdmin  bool
}

// SystemActor is used by background jobs and the seed command.
var SystemActor = Actor{Username: "system"}

// Audit is the value written to created_by/updated_by.
func (a Actor) Audit() string {
	if a.ID == uuid.Nil {
		return "system"
	}
	return a.ID.String()
}

func (a Actor) eventUser() *ws.EventUser {
	return &ws.EventUser{ID: a.Audit(), Username: a.Username}
}

// Notifier pushes events to websocket clients.
type Notifier interface {
	Publish(event ws.Event)
}

// Invalidator drops cached analytics after a write.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// AnalyticsCache stores derived read models under a versioned key.
type AnalyticsCache interface {
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error
}

// AlertRecorder counts quality alerts.
type AlertRecorder interface {
	QualityAlert(status string)
}

// Thresholds drive the low-stock and expiration windows.
type Thresholds struct {
	LowStock         int
	ExpiringSoonDays int
	CriticalDays     int
	WindowDays       int
}

func DefaultThresholds() Thresholds {
	return Thresholds{LowStock: 10, ExpiringSoonDays: 30, CriticalDays: 7, WindowDays: 90}
}

// Deps are the collaborators every service shares. Nil members are skipped.
type Deps struct {
	Notifier   Notifier
	Cache      Invalidator
	Analytics  AnalyticsCache
	Alerts     AlertRecorder
	Logger     *slog.Logger
	Thresholds Thresholds
	Now        func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	def := DefaultThresholds()
	if d.Thresholds.LowStock <= 0 {
		d.Thresholds.LowStock = def.LowStock
	}
	if d.Thresholds.ExpiringSoonDays <= 0 {
		d.Thresholds.ExpiringSoonDays = def.ExpiringSoonDays
	}
	if d.Thresholds.CriticalDays <= 0 {
		d.Thresholds.CriticalDays = def.CriticalDays
	}
	if d.Thresholds.WindowDays <= 0 {
		d.Thresholds.WindowDays = def.WindowDays
	}
	return d
}

// changed invalidates analytics and publishes event after a successful write.
func (d Deps) changed(ctx context.Context, event ws.Event) {
	if d.Cache != nil {
		if err := d.Cache.Bump(ctx); err != nil {
			d.Logger.Warn("analytics cache bump failed", slog.Any("error", err))
		}
	}
	if d.Notifier != nil {
		if event.Timestamp.IsZero() {
			event.Timestamp = d.Now()
		}
		d.Notifier.Publish(event)
	}
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// cached serves load through the analytics cache. A cache outage degrades
// to a direct load; loader errors are returned as is.
func cached[T any](ctx context.Context, d Deps, load func(context.Context) (T, error), parts ...string) (T, error) {
	if d.Analytics == nil {
		return load(ctx)
	}
	var zero T
	key, err := d.Analytics.BuildKey(ctx, parts...)
	if err != nil {
		d.Logger.Warn("analytics cache unavailable", slog.Any("error", err))
		return load(ctx)
	}
	var loadErr error
	var out T
	err = d.Analytics.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		v, err := load(ctx)
		loadErr = err
		return v, err
	})
	if loadErr != nil {
		return zero, loadErr
	}
	if err != nil {
		d.Logger.Warn("analytics cache read failed", slog.String("key", key), slog.Any("error", err))
		return load(ctx)
	}
	return out, nil
}
