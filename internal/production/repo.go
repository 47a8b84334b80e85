package production

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// Repository persists production records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.ProductionRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProductionRecord, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ProductionRecord, error)
	MaxProductionNumber(ctx context.Context, orderID uuid.UUID) (int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ProductionStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
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

func (r *repository) Create(ctx context.Context, record *models.ProductionRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductionRecord, error) {
	var record models.ProductionRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ProductionRecord, error) {
	var out []models.ProductionRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("production_number ASC").
		Find(&out).Error
	return out, err
}

// MaxProductionNumber returns 0 for an order without records.
func (r *repository) MaxProductionNumber(ctx context.Context, orderID uuid.UUID) (int, error) {
	var highest int
	err := r.db.WithContext(ctx).
		Model(&models.ProductionRecord{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(MAX(production_number), 0)").
		Scan(&highest).Error
	return highest, err
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ProductionStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductionRecord{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// Delete clears dispatch references to the record before removing it.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Dispatch{}).
		Where("production_record_id = ?", id).
		Update("production_record_id", nil).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&models.ProductionRecord{}).Error
}
