package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// Dispatch is one shipment, or one return, against an order.
type Dispatch struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID            uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	Type               enums.DispatchType   `gorm:"column:dispatch_type;type:text;not null" json:"dispatch_type"`
	DispatchDate       time.Time            `gorm:"column:dispatch_date;not null" json:"dispatch_date"`
	ShipmentStatus     enums.ShipmentStatus `gorm:"column:shipment_status;type:text;not null" json:"shipment_status"`
	CourierID          *uuid.UUID           `gorm:"column:courier_id;type:uuid" json:"courier_id,omitempty"`
	TrackingID         *string              `gorm:"column:tracking_id" json:"tracking_id,omitempty"`
	ProductionRecordID *uuid.UUID           `gorm:"column:production_record_id;type:uuid" json:"production_record_id,omitempty"`
	Notes              *string              `gorm:"column:notes" json:"notes,omitempty"`
	Items              []DispatchItem       `gorm:"foreignKey:DispatchID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (d *Dispatch) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// DispatchItem records how many units of an order item moved. Quantity is
// negative for returns.
type DispatchItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DispatchID  uuid.UUID `gorm:"column:dispatch_id;type:uuid;not null;index" json:"dispatch_id"`
	OrderItemID uuid.UUID `gorm:"column:order_item_id;type:uuid;not null;index" json:"order_item_id"`
	Quantity    int       `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (i *DispatchItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
