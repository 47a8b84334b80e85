package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockOrder reads the order row FOR UPDATE. Every ledger-validating write
// takes this lock first, which serializes writers on the same order.
func (r *repository) LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items").Create(order).Error
}

func (r *repository) CreateItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Update("quantity", quantity).Error
}

// DeleteItem removes the item together with any dispatch lines that netted
// to zero against it.
func (r *repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_item_id = ?", itemID).Delete(&models.DispatchItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", itemID).Delete(&models.OrderItem{}).Error
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

// DeleteOrderCascade removes the order and everything hanging off it,
// children first.
func (r *repository) DeleteOrderCascade(ctx context.Context, orderID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	dispatchIDs := db.Model(&models.Dispatch{}).Select("id").Where("order_id = ?", orderID)
	if err := db.Where("dispatch_id IN (?)", dispatchIDs).Delete(&models.DispatchItem{}).Error; err != nil {
		return err
	}
	for _, model := range []any{
		&models.Dispatch{},
		&models.ProductionRecord{},
		&models.PaymentFollowup{},
		&models.OrderItem{},
	} {
		if err := db.Where("order_id = ?", orderID).Delete(model).Error; err != nil {
			return err
		}
	}
	return db.Where("id = ?", orderID).Delete(&models.Order{}).Error
}
