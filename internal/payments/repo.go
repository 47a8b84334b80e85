package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// DueFollowup is a followup awaiting a reminder, joined with its order.
type DueFollowup struct {
	ID                  uuid.UUID `gorm:"column:id"`
	OrderID             uuid.UUID `gorm:"column:order_id"`
	FollowupDate        time.Time `gorm:"column:followup_date"`
	InternalOrderNumber string    `gorm:"column:internal_order_number"`
	CustomerID          uuid.UUID `gorm:"column:customer_id"`
}

// Repository persists payment followups.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, followups []models.PaymentFollowup) error
	CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentFollowup, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentFollowup, error)
	MarkReceived(ctx context.Context, id uuid.UUID, paymentDate time.Time, notes *string) error
	LockDue(ctx context.Context, asOf time.Time, limit int) ([]DueFollowup, error)
	MarkReminded(ctx context.Context, ids []uuid.UUID, at time.Time) error
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

func (r *repository) CreateBatch(ctx context.Context, followups []models.PaymentFollowup) error {
	if len(followups) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&followups).Error
}

func (r *repository) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentFollowup{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count, err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentFollowup, error) {
	var followup models.PaymentFollowup
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&followup).Error; err != nil {
		return nil, err
	}
	return &followup, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentFollowup, error) {
	var out []models.PaymentFollowup
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("followup_date ASC").
		Find(&out).Error
	return out, err
}

func (r *repository) MarkReceived(ctx context.Context, id uuid.UUID, paymentDate time.Time, notes *string) error {
	updates := map[string]any{
		"payment_received": true,
		"payment_date":     paymentDate,
	}
	if notes != nil {
		updates["notes"] = *notes
	}
	return r.db.WithContext(ctx).
		Model(&models.PaymentFollowup{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// LockDue claims followups dated on or before asOf that are unpaid, not yet
// reminded and belong to an open, unpaid order. Rows held by another worker
// are skipped.
func (r *repository) LockDue(ctx context.Context, asOf time.Time, limit int) ([]DueFollowup, error) {
	var out []DueFollowup
	err := r.db.WithContext(ctx).
		Table("payment_followups").
		Select("payment_followups.id, payment_followups.order_id, payment_followups.followup_date, orders.internal_order_number, orders.customer_id").
		Joins("JOIN orders ON orders.id = payment_followups.order_id").
		Where("payment_followups.payment_received = ?", false).
		Where("payment_followups.reminded_at IS NULL").
		Where("payment_followups.followup_date <= ?", asOf).
		Where("orders.payment_status <> ?", enums.PaymentStatusPaid).
		Where("orders.order_status <> ?", enums.OrderStatusCancelled).
		Order("payment_followups.followup_date ASC").
		Limit(limit).
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "payment_followups"}, Options: "SKIP LOCKED"}).
		Scan(&out).Error
	return out, err
}

func (r *repository) MarkReminded(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.PaymentFollowup{}).
		Where("id IN ?", ids).
		Update("reminded_at", at).Error
}
