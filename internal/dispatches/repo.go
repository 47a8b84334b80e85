package dispatches

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// Repository persists dispatches and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dispatch *models.Dispatch) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dispatch, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Dispatch, error)
	UpdateShipmentStatus(ctx context.Context, id uuid.UUID, status enums.ShipmentStatus) error
	ShipmentStatuses(ctx context.Context, orderID uuid.UUID) ([]enums.ShipmentStatus, error)
	ProductionRecordExists(ctx context.Context, orderID, recordID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create writes the header and every line in Items.
func (r *repository) Create(ctx context.Context, dispatch *models.Dispatch) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit("Items").Create(dispatch).Error; err != nil {
		return err
	}
	for i := range dispatch.Items {
		dispatch.Items[i].DispatchID = dispatch.ID
	}
	if len(dispatch.Items) == 0 {
		return nil
	}
	return db.Create(&dispatch.Items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Dispatch, error) {
	var dispatch models.Dispatch
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&dispatch).Error
	if err != nil {
		return nil, err
	}
	return &dispatch, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Dispatch, error) {
	var out []models.Dispatch
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		Order("dispatch_date ASC").
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *repository) UpdateShipmentStatus(ctx context.Context, id uuid.UUID, status enums.ShipmentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Dispatch{}).
		Where("id = ?", id).
		Update("shipment_status", status).Error
}

func (r *repository) ShipmentStatuses(ctx context.Context, orderID uuid.UUID) ([]enums.ShipmentStatus, error) {
	var out []enums.ShipmentStatus
	err := r.db.WithContext(ctx).
		Model(&models.Dispatch{}).
		Where("order_id = ?", orderID).
		Pluck("shipment_status", &out).Error
	return out, err
}

func (r *repository) ProductionRecordExists(ctx context.Context, orderID, recordID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductionRecord{}).
		Where("id = ? AND order_id = ?", recordID, orderID).
		Count(&count).Error
	return count > 0, err
}
