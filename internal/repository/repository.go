package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"qualistock/internal/model"
	"qualistock/pkg/database"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	ErrInUse     = errors.New("record is referenced")
)

// translate maps driver and gorm errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case database.IsUniqueViolation(err):
		return ErrDuplicate
	case database.IsForeignKeyViolation(err):
		return ErrInUse
	default:
		return err
	}
}

// Page is skip/limit pagination. A zero Limit means no limit.
type Page struct {
	Skip  int
	Limit int
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	if p.Skip > 0 {
		db = db.Offset(p.Skip)
	}
	if p.Limit > 0 {
		db = db.Limit(p.Limit)
	}
	return db
}

// Window slices an in-memory result the way Page slices a query.
func (p Page) Window(n int) (int, int) {
	start := p.Skip
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := n
	if p.Limit > 0 && start+p.Limit < n {
		end = start + p.Limit
	}
	return start, end
}

type CategoryFilter struct {
	Name string // contains, case-insensitive
	Page
}

type ProductFilter struct {
	Name       string
	CategoryID *uuid.UUID
	Page
}

type StockItemFilter struct {
	Location      string
	ProductID     *uuid.UUID
	MinQuantity   *int
	MaxQuantity   *int // exclusive
	ExpiresAfter  *time.Time
	ExpiresBefore *time.Time
	OrderBy       string // "quantity", "expiration" or "" for newest first
	Page
}

type QualityCheckFilter struct {
	Statuses    []model.QualityStatus
	ProductID   *uuid.UUID
	BatchNumber string // contains
	BatchExact  string
	Page
}

type ForecastFilter struct {
	ProductID     *uuid.UUID
	MinConfidence *float64
	From          *time.Time
	To            *time.Time
	Page
}

type MarketTrendFilter struct {
	CategoryID *uuid.UUID
	MinImpact  *float64
	From       *time.Time
	To         *time.Time
	Page
}

type MovementFilter struct {
	ProductID   *uuid.UUID
	StockItemID *uuid.UUID
	Page
}

// ExpiringFilter selects stock items whose expiration falls in [From, To].
type ExpiringFilter struct {
	From       time.Time
	To         time.Time
	CategoryID *uuid.UUID
	ProductID  *uuid.UUID
	Page
}

// ExpiringItem is a stock item joined with its product and category.
type ExpiringItem struct {
	StockItemID    uuid.UUID `json:"stock_item_id"`
	BatchNumber    string    `json:"batch_number"`
	Quantity       int       `json:"quantity"`
	ExpirationDate time.Time `json:"expiration_date"`
	Location       string    `json:"location"`
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	SKU            string    `json:"sku"`
	CategoryID     uuid.UUID `json:"category_id"`
	CategoryName   string    `json:"category_name"`
	DaysRemaining  int       `json:"days_remaining"`
}

// CategoryCount is a per-category counter.
type CategoryCount struct {
	CategoryID   uuid.UUID `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Count        int64     `json:"count"`
}

// ProductIssueCount counts POOR and CRITICAL checks of one product.
type ProductIssueCount struct {
	ProductID     uuid.UUID `json:"product_id"`
	ProductName   string    `json:"product_name"`
	SKU           string    `json:"sku"`
	PoorCount     int64     `json:"poor_count"`
	CriticalCount int64     `json:"critical_count"`
	TotalIssues   int64     `json:"total_issues"`
}

// ProductDemand aggregates future forecasts of one product.
type ProductDemand struct {
	ProductID     uuid.UUID
	TotalDemand   int64
	AvgConfidence float64
	Forecasts     int64
}

// StockMovementData is one point of the stock movement chart.
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}
