package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is the read-only projection of the customer directory.
type Customer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Email     *string   `gorm:"column:email"`
	Phone     *string   `gorm:"column:phone"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// InventoryItem is the read-only projection of the inventory catalog. A row
// with ParentID set is a sub-item of that parent.
type InventoryItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ParentID  *uuid.UUID      `gorm:"column:parent_id;type:uuid"`
	SKU       *string         `gorm:"column:sku"`
	Name      string          `gorm:"column:name;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at"`
}
