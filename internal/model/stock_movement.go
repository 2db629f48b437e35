package model

import "github.com/google/uuid"

type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

// StockMovement is the audit trail of quantity changes on stock items.
// It keeps plain ids so history survives deletes.
type StockMovement struct {
	BaseModel
	StockItemID uuid.UUID    `gorm:"type:char(36);index;not null" json:"stock_item_id"`
	ProductID   uuid.UUID    `gorm:"type:char(36);index;not null" json:"product_id"`
	Type        MovementType `gorm:"type:varchar(10);not null" json:"type"`
	Quantity    int          `gorm:"not null" json:"quantity"`
	Balance     int          `gorm:"not null" json:"balance"`
	Reason      string       `gorm:"type:varchar(50)" json:"reason"`
}

// Movement reasons
const (
	ReasonCreated  = "created"
	ReasonUpdated  = "updated"
	ReasonCleared  = "cleared"
	ReasonZeroed   = "zeroed"
	ReasonDeleted  = "deleted"
	ReasonUpserted = "upserted"
)

// NewMovement returns the movement for a change from oldQty to item.Quantity,
// or nil when nothing moved.
func NewMovement(item *StockItem, oldQty int, reason, actor string) *StockMovement {
	delta := item.Quantity - oldQty
	if delta == 0 {
		return nil
	}
	m := &StockMovement{
		StockItemID: item.ID,
		ProductID:   item.ProductID,
		Type:        MovementIn,
		Quantity:    delta,
		Balance:     item.Quantity,
		Reason:      reason,
	}
	if delta < 0 {
		m.Type = MovementOut
		m.Quantity = -delta
	}
	m.Touch(actor)
	return m
}
