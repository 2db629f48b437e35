package model

import (
	"time"

	"github.com/google/uuid"
)

// Placeholder values for a product that has no physical stock.
const (
	PlaceholderLocation = "Not in stock"
	PlaceholderBatch    = "EMPTY"
)

// StockItem is one batch of a product held at a location.
type StockItem struct {
	BaseModel
	ProductID         uuid.UUID  `gorm:"type:char(36);index;not null" json:"product_id"`
	Quantity          int        `gorm:"not null;default:0;index" json:"quantity"`
	Location          string     `gorm:"type:varchar(255)" json:"location"`
	BatchNumber       string     `gorm:"type:varchar(100);index" json:"batch_number"`
	ManufacturingDate *time.Time `json:"manufacturing_date"`
	ExpirationDate    *time.Time `gorm:"index" json:"expiration_date"`

	Product *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
}

// NewPlaceholderStock returns the zero-quantity row every product starts with.
func NewPlaceholderStock(productID uuid.UUID) *StockItem {
	return &StockItem{
		ProductID:   productID,
		Quantity:    0,
		Location:    PlaceholderLocation,
		BatchNumber: PlaceholderBatch,
	}
}

// Clear empties the item while keeping the row.
func (s *StockItem) Clear() {
	s.Quantity = 0
	s.BatchNumber = ""
	s.Location = ""
	s.ManufacturingDate = nil
	s.ExpirationDate = nil
}

// DaysUntilExpiry returns whole days left, floored, or -1 without a date.
func (s *StockItem) DaysUntilExpiry(now time.Time) int {
	if s.ExpirationDate == nil {
		return -1
	}
	return DaysBetween(now, *s.ExpirationDate)
}

// DaysBetween counts whole days from a to b, flooring partial days.
func DaysBetween(a, b time.Time) int {
	d := b.Sub(a)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}
