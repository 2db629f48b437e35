package model

import (
	"time"

	"github.com/google/uuid"
)

// Forecast is a predicted demand for a product on a date.
type Forecast struct {
	BaseModel
	ProductID       uuid.UUID `gorm:"type:char(36);index;not null" json:"product_id"`
	ForecastDate    time.Time `gorm:"index;not null" json:"forecast_date"`
	PredictedDemand int       `gorm:"not null" json:"predicted_demand"`
	ConfidenceLevel float64   `gorm:"not null" json:"confidence_level"`
	Notes           string    `gorm:"type:text" json:"notes"`

	Product *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
}

// MarketTrend records an observed trend for a category.
type MarketTrend struct {
	BaseModel
	CategoryID       uuid.UUID `gorm:"type:char(36);index;not null" json:"category_id"`
	TrendDate        time.Time `gorm:"index;not null" json:"trend_date"`
	TrendDescription string    `gorm:"type:text" json:"trend_description"`
	ImpactLevel      float64   `gorm:"not null" json:"impact_level"`

	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"category,omitempty"`
}
