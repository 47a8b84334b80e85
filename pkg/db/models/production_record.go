package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// ProductionRecord is one production batch. Partial batches list the units
// selected per order item; full batches cover every line.
type ProductionRecord struct {
	ID                 uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID            uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	ProductionNumber   int                    `gorm:"column:production_number;not null" json:"production_number"`
	Type               enums.ProductionType   `gorm:"column:production_type;type:text;not null" json:"production_type"`
	SelectedQuantities map[uuid.UUID]int      `gorm:"column:selected_quantities;type:jsonb;serializer:json" json:"selected_quantities"`
	Status             enums.ProductionStatus `gorm:"column:status;type:text;not null" json:"status"`
	DocumentRef        *string                `gorm:"column:document_ref" json:"document_ref,omitempty"`
	Notes              *string                `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt          time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (p *ProductionRecord) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
