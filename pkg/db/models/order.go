package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// Order is the fulfillment aggregate root. Items, dispatches, production
// records and payment followups all hang off it.
type Order struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID          uuid.UUID           `gorm:"column:customer_id;type:uuid;not null" json:"customer_id"`
	InternalOrderNumber string              `gorm:"column:internal_order_number;not null;uniqueIndex" json:"internal_order_number"`
	ExternalOrderNumber *string             `gorm:"column:external_order_number" json:"external_order_number,omitempty"`
	CashDiscount        bool                `gorm:"column:cash_discount;not null" json:"cash_discount"`
	Status              enums.OrderStatus   `gorm:"column:order_status;type:text;not null" json:"order_status"`
	PaymentStatus       enums.PaymentStatus `gorm:"column:payment_status;type:text;not null" json:"payment_status"`
	TotalPrice          decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null" json:"total_price"`
	PaidAmount          decimal.Decimal     `gorm:"column:paid_amount;type:numeric(12,2);not null" json:"paid_amount"`
	RemainingAmount     decimal.Decimal     `gorm:"column:remaining_amount;type:numeric(12,2);not null" json:"remaining_amount"`
	PaymentNotes        *string             `gorm:"column:payment_notes" json:"payment_notes,omitempty"`
	Notes               *string             `gorm:"column:notes" json:"notes,omitempty"`
	CreatedBy           uuid.UUID           `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	Items               []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is one ordered inventory line. UnitPrice is captured from the
// catalog when the line is added.
type OrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	InventoryItemID uuid.UUID       `gorm:"column:inventory_item_id;type:uuid;not null" json:"inventory_item_id"`
	Quantity        int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// LineTotal is quantity times unit price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
