package models

import "time"

// OrderNumberCounter holds the last reserved value of a named identifier sequence.
type OrderNumberCounter struct {
	Name      string    `gorm:"column:name;primaryKey"`
	Value     int64     `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
