package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"qualistock/internal/model"
	"qualistock/internal/repository/memrepo"
	"qualistock/internal/seed"
	"qualistock/internal/ws"
	"qualistock/pkg/jwt"
)

// Wednesday; rows are stamped an hour before the services' clock.
var testNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []ws.Event
}

func (r *recorder) Publish(e ws.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(t string) []ws.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ws.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) last() ws.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return ws.Event{}
	}
	return r.events[len(r.events)-1]
}

type bumps struct {
	mu sync.Mutex
	n  int
}

func (b *bumps) Bump(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n++
	return nil
}

func (b *bumps) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

type alerts struct {
	mu       sync.Mutex
	statuses []string
}

func (a *alerts) QualityAlert(status string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statuses = append(a.statuses, status)
}

type env struct {
	store  *memrepo.Store
	deps   Deps
	events *recorder
	bumps  *bumps
	alerts *alerts
	tokens *jwt.Manager

	categories CategoryService
	products   ProductService
	stock      StockService
	quality    QualityService
	forecasts  ForecastService
	expiration ExpirationService
	dashboard  DashboardService
	auth       AuthService
	users      UserService
	seeder     SeedService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memrepo.New()
	store.Now = func() time.Time { return testNow.Add(-time.Hour) }

	e := &env{store: store, events: &recorder{}, bumps: &bumps{}, alerts: &alerts{}}
	e.tokens = jwt.NewManager("test-secret", time.Hour)
	e.deps = Deps{
		Notifier: e.events,
		Cache:    e.bumps,
		Alerts:   e.alerts,
		Now:      func() time.Time { return testNow },
	}

	fixture, err := seed.Default()
	require.NoError(t, err)

	e.categories = NewCategoryService(store.Categories(), store.Products(), store.MarketTrends(), e.deps)
	e.products = NewProductService(store.Products(), store.Categories(), store.StockItems(), store.QualityChecks(), store.Forecasts(), e.deps)
	e.stock = NewStockService(store.StockItems(), store.Products(), store.Movements(), e.deps)
	e.quality = NewQualityService(store.QualityChecks(), store.Products(), store.Users(), e.deps)
	e.forecasts = NewForecastService(store.Forecasts(), store.MarketTrends(), store.Products(), store.Categories(), store.StockItems(), e.deps)
	e.expiration = NewExpirationService(store.StockItems(), e.deps)
	e.dashboard = NewDashboardService(store.Products(), store.StockItems(), store.QualityChecks(), store.Movements(), e.deps)
	e.auth = NewAuthService(store.Users(), store.Roles(), e.tokens, e.deps)
	e.users = NewUserService(store.Users(), store.Roles(), store.Privileges(), store.QualityChecks(), e.deps)
	e.seeder = NewSeedService(SeedRepos{
		Users:      store.Users(),
		Roles:      store.Roles(),
		Privileges: store.Privileges(),
		Categories: store.Categories(),
		Products:   store.Products(),
		Stock:      store.StockItems(),
		Checks:     store.QualityChecks(),
		Forecasts:  store.Forecasts(),
	}, fixture, rand.New(rand.NewPCG(1, 2)), e.deps)

	require.NoError(t, e.seeder.EnsureRoles(context.Background()))
	return e
}

// register creates a user and returns it as an Actor.
func (e *env) register(t *testing.T, username string, caller *Actor, admin bool) Actor {
	t.Helper()
	user, err := e.auth.Register(context.Background(), caller, &RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
		IsAdmin:  admin,
	})
	require.NoError(t, err)
	return Actor{ID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin()}
}

func (e *env) category(t *testing.T, actor Actor, name string) *model.Category {
	t.Helper()
	c, err := e.categories.Create(context.Background(), actor, &CategoryRequest{Name: name})
	require.NoError(t, err)
	return c
}

func (e *env) product(t *testing.T, actor Actor, categoryID uuid.UUID, name, sku string) *model.Product {
	t.Helper()
	p, err := e.products.Create(context.Background(), actor, &ProductRequest{
		Name:       name,
		SKU:        sku,
		CategoryID: categoryID,
		UnitPrice:  9.99,
	})
	require.NoError(t, err)
	return p
}

func (e *env) stockItem(t *testing.T, actor Actor, productID uuid.UUID, qty int, expiresIn *time.Duration) *model.StockItem {
	t.Helper()
	req := &StockItemRequest{ProductID: productID, Quantity: qty, Location: "Warehouse A", BatchNumber: "B-" + uuid.NewString()[:8]}
	if expiresIn != nil {
		at := testNow.Add(*expiresIn)
		req.ExpirationDate = &at
	}
	item, err := e.stock.Create(context.Background(), actor, req)
	require.NoError(t, err)
	return item
}

func dur(d time.Duration) *time.Duration { return &d }

func kindOf(err error) error {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return nil
}
