package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
)

// Repository loads ledger snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LoadSnapshot(ctx context.Context, orderID uuid.UUID) (*Snapshot, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ledger repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LoadSnapshot(ctx context.Context, orderID uuid.UUID) (*Snapshot, error) {
	snapshot := &Snapshot{OrderID: orderID}

	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&snapshot.Items).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Table("dispatch_items").
		Select("dispatch_items.dispatch_id, dispatch_items.order_item_id, dispatch_items.quantity, dispatches.dispatch_type").
		Joins("JOIN dispatches ON dispatches.id = dispatch_items.dispatch_id").
		Where("dispatches.order_id = ?", orderID).
		Scan(&snapshot.DispatchLines).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Model(&models.ProductionRecord{}).
		Where("order_id = ?", orderID).
		Order("production_number ASC").
		Find(&snapshot.Production).Error; err != nil {
		return nil, err
	}

	return snapshot, nil
}
