package model

import "github.com/google/uuid"

type Product struct {
	BaseModel
	Name        string    `gorm:"type:varchar(255);index;not null" json:"name"`
	SKU         string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku"`
	Description string    `gorm:"type:text" json:"description"`
	CategoryID  uuid.UUID `gorm:"type:char(36);index;not null" json:"category_id"`
	UnitPrice   float64   `gorm:"not null;default:0" json:"unit_price"`

	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"category,omitempty"`
}
