// Package memrepo holds in-memory implementations of the repository
// interfaces. Service and HTTP tests run against it instead of a database.
package memrepo

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"qualistock/internal/model"
	"qualistock/internal/repository"
)

// Store is one shared in-memory database. Repositories handed out by the
// same Store see each other's rows, so joins and reference checks work.
type Store struct {
	mu sync.RWMutex

	categories map[uuid.UUID]model.Category
	products   map[uuid.UUID]model.Product
	stock      map[uuid.UUID]model.StockItem
	checks     map[uuid.UUID]model.QualityCheck
	forecasts  map[uuid.UUID]model.Forecast
	trends     map[uuid.UUID]model.MarketTrend
	users      map[uuid.UUID]model.User
	movements  []model.StockMovement
	roles      []model.Role
	privileges []model.Privilege

	tick int64
	Now  func() time.Time
}

func New() *Store {
	return &Store{
		categories: map[uuid.UUID]model.Category{},
		products:   map[uuid.UUID]model.Product{},
		stock:      map[uuid.UUID]model.StockItem{},
		checks:     map[uuid.UUID]model.QualityCheck{},
		forecasts:  map[uuid.UUID]model.Forecast{},
		trends:     map[uuid.UUID]model.MarketTrend{},
		users:      map[uuid.UUID]model.User{},
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Categories() repository.CategoryRepository        { return &categoryRepo{s} }
func (s *Store) Products() repository.ProductRepository           { return &productRepo{s} }
func (s *Store) StockItems() repository.StockItemRepository       { return &stockItemRepo{s} }
func (s *Store) Movements() repository.StockMovementRepository    { return &movementRepo{s} }
func (s *Store) QualityChecks() repository.QualityCheckRepository { return &qualityCheckRepo{s} }
func (s *Store) Forecasts() repository.ForecastRepository         { return &forecastRepo{s} }
func (s *Store) MarketTrends() repository.MarketTrendRepository   { return &marketTrendRepo{s} }
func (s *Store) Users() repository.UserRepository                 { return &userRepo{s} }
func (s *Store) Roles() repository.RoleRepository                 { return &roleRepo{s} }
func (s *Store) Privileges() repository.PrivilegeRepository       { return &privilegeRepo{s} }

// stamp fills id and timestamps the way gorm hooks and autoTime would.
// Timestamps strictly increase so created_at ordering is stable.
func (s *Store) stamp(b *model.BaseModel, create bool) {
	s.tick++
	now := s.Now().Add(time.Duration(s.tick) * time.Microsecond)
	if create {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
	}
	b.UpdatedAt = now
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

func window[T any](xs []T, p repository.Page) []T {
	start, end := p.Window(len(xs))
	return xs[start:end]
}
