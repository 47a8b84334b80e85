package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentFollowup is one scheduled daily check on a cash-discount order.
type PaymentFollowup struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID         uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	FollowupDate    time.Time  `gorm:"column:followup_date;type:date;not null" json:"followup_date"`
	PaymentReceived bool       `gorm:"column:payment_received;not null" json:"payment_received"`
	PaymentDate     *time.Time `gorm:"column:payment_date;type:date" json:"payment_date,omitempty"`
	Notes           *string    `gorm:"column:notes" json:"notes,omitempty"`
	RemindedAt      *time.Time `gorm:"column:reminded_at" json:"reminded_at,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (f *PaymentFollowup) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
