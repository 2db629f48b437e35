package service

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"qualistock/internal/model"
	"qualistock/internal/repository"
	"qualistock/internal/seed"
)

type SeedService interface {
	// EnsureRoles seeds privileges and roles; safe to call on every start.
	EnsureRoles(ctx context.Context) error
	// InitTestData loads the demo data set unless any user exists.
	InitTestData(ctx context.Context) (*SeedResult, error)
}

type SeedResult struct {
	Created       bool   `json:"created"`
	Message       string `json:"message"`
	Categories    int    `json:"categories"`
	Products      int    `json:"products"`
	StockItems    int    `json:"stock_items"`
	QualityChecks int    `json:"quality_checks"`
	Forecasts     int    `json:"forecasts"`
}

// SeedRepos bundles the repositories the seeder writes to.
type SeedRepos struct {
	Users      repository.UserRepository
	Roles      repository.RoleRepository
	Privileges repository.PrivilegeRepository
	Categories repository.CategoryRepository
	Products   repository.ProductRepository
	Stock      repository.StockItemRepository
	Checks     repository.QualityCheckRepository
	Forecasts  repository.ForecastRepository

	// Atomic runs fn against repositories bound to one transaction. Nil
	// runs fn on the repositories above.
	Atomic func(ctx context.Context, fn func(SeedRepos) error) error
}

func (r SeedRepos) atomic(ctx context.Context, fn func(SeedRepos) error) error {
	if r.Atomic == nil {
		return fn(r)
	}
	return r.Atomic(ctx, fn)
}

type seedService struct {
	repos   SeedRepos
	fixture *seed.Fixture
	rng     *rand.Rand
	deps    Deps
}

// NewSeedService uses rng for the random quantities and dates; nil picks a
// time-seeded source.
func NewSeedService(repos SeedRepos, fixture *seed.Fixture, rng *rand.Rand, deps Deps) SeedService {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>1))
	}
	return &seedService{repos: repos, fixture: fixture, rng: rng, deps: deps.withDefaults()}
}

func (s *seedService) EnsureRoles(ctx context.Context) error {
	if err := s.repos.Privileges.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed privileges: %w", err)
	}
	if err := s.repos.Roles.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	return nil
}

func (s *seedService) between(r seed.IntRange) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + s.rng.IntN(r.Max-r.Min+1)
}

func (s *seedService) InitTestData(ctx context.Context) (*SeedResult, error) {
	n, err := s.repos.Users.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return &SeedResult{Message: "Test data already exists"}, nil
	}
	if err := s.EnsureRoles(ctx); err != nil {
		return nil, err
	}
	adminRole, err := s.repos.Roles.FindByCode(ctx, model.RoleAdmin)
	if err != nil {
		return nil, err
	}

	var result *SeedResult
	err = s.repos.atomic(ctx, func(repos SeedRepos) error {
		var err error
		result, err = s.load(ctx, repos, adminRole)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Bump(ctx); err != nil {
			s.deps.Logger.Warn("analytics cache bump failed", "error", err)
		}
	}
	return result, nil
}

// load writes the fixture through repos. Any error leaves the caller to
// roll back.
func (s *seedService) load(ctx context.Context, repos SeedRepos, adminRole *model.Role) (*SeedResult, error) {
	fx := s.fixture
	actor := SystemActor.Audit()
	now := s.deps.Now()
	result := &SeedResult{Created: true, Message: "Test data created successfully"}

	admin := &model.User{Username: fx.Admin.Username, Email: fx.Admin.Email, IsActive: true, RoleID: &adminRole.ID}
	admin.Touch(actor)
	if err := admin.SetPassword(fx.Admin.Password); err != nil {
		return nil, err
	}
	if err := repos.Users.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	statuses := model.QualityStatuses
	productIndex := 0
	for _, cs := range fx.Categories {
		category := &model.Category{Name: cs.Name, Description: cs.Description}
		category.Touch(actor)
		if err := repos.Categories.Create(ctx, category); err != nil {
			return nil, fmt.Errorf("seed category %s: %w", cs.Name, err)
		}
		result.Categories++

		for _, ps := range cs.Products {
			productIndex++
			product := &model.Product{Name: ps.Name, SKU: ps.SKU, CategoryID: category.ID, UnitPrice: ps.UnitPrice}
			product.Touch(actor)
			if err := repos.Products.Create(ctx, product); err != nil {
				return nil, fmt.Errorf("seed product %s: %w", ps.SKU, err)
			}
			result.Products++

			for j := 1; j <= fx.Stock.BatchesPerProduct; j++ {
				manufactured := now.Add(-days(s.between(fx.Stock.ManufacturedDaysAgo)))
				item := &model.StockItem{
					ProductID:         product.ID,
					Quantity:          s.between(fx.Stock.Quantity),
					Location:          fx.Locations[s.rng.IntN(len(fx.Locations))],
					BatchNumber:       fmt.Sprintf("BATCH%d%d", productIndex, j),
					ManufacturingDate: &manufactured,
				}
				if cs.Perishable {
					expires := now.Add(days(s.between(fx.Stock.ExpiresInDays)))
					item.ExpirationDate = &expires
				}
				item.Touch(actor)
				if err := repos.Stock.Create(ctx, item); err != nil {
					return nil, fmt.Errorf("seed stock %s: %w", ps.SKU, err)
				}
				result.StockItems++
			}

			status := statuses[s.rng.IntN(len(statuses))]
			check := &model.QualityCheck{
				ProductID:   product.ID,
				BatchNumber: fmt.Sprintf("BATCH%d1", productIndex),
				CheckDate:   now,
				Status:      status,
				Notes:       fmt.Sprintf("Check note: %s", status),
				CheckedBy:   admin.ID,
			}
			check.Touch(actor)
			if err := repos.Checks.Create(ctx, check); err != nil {
				return nil, fmt.Errorf("seed quality check %s: %w", ps.SKU, err)
			}
			result.QualityChecks++

			conf := fx.Forecasts.Confidence
			for _, offset := range fx.Forecasts.OffsetsDays {
				forecast := &model.Forecast{
					ProductID:       product.ID,
					ForecastDate:    now.Add(days(offset)),
					PredictedDemand: s.between(fx.Forecasts.Demand),
					ConfidenceLevel: math.Round((conf.Min+s.rng.Float64()*(conf.Max-conf.Min))*100) / 100,
					Notes:           fmt.Sprintf("Forecast for %d days ahead", offset),
				}
				forecast.Touch(actor)
				if err := repos.Forecasts.Create(ctx, forecast); err != nil {
					return nil, fmt.Errorf("seed forecast %s: %w", ps.SKU, err)
				}
				result.Forecasts++
			}
		}
	}

	return result, nil
}
