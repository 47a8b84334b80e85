package sequence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

const (
	orderNumberCounter = "order_number"
	seedSavepoint      = "order_number_seed"
)

// Sequencer reserves internal order numbers from a counter row. Reservation
// happens inside the caller's transaction and holds a row lock on the counter
// until that transaction ends, so concurrent creators never share a number.
type Sequencer struct {
	logg *logger.Logger
}

func NewSequencer(logg *logger.Logger) *Sequencer {
	return &Sequencer{logg: logg}
}

// Next reserves and returns the next order number.
func (s *Sequencer) Next(ctx context.Context, tx *gorm.DB) (string, error) {
	if tx == nil {
		return "", errors.New("transaction required")
	}

	counter, err := lockCounter(ctx, tx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seed := models.OrderNumberCounter{Name: orderNumberCounter, Value: s.seed(ctx, tx)}
		if err := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed order number counter")
		}
		counter, err = lockCounter(ctx, tx)
	}
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order number counter")
	}

	next := counter.Value + 1
	if err := tx.WithContext(ctx).
		Model(&models.OrderNumberCounter{}).
		Where("name = ?", orderNumberCounter).
		Update("value", next).Error; err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order number counter")
	}
	return FormatOrderNumber(next), nil
}

func lockCounter(ctx context.Context, tx *gorm.DB) (*models.OrderNumberCounter, error) {
	var counter models.OrderNumberCounter
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", orderNumberCounter).
		First(&counter).Error
	if err != nil {
		return nil, err
	}
	return &counter, nil
}

// seed scans existing order numbers for a cold counter. A failed scan falls
// back to zero; the unique index on internal_order_number still rejects a
// reused number.
func (s *Sequencer) seed(ctx context.Context, tx *gorm.DB) int64 {
	if err := tx.SavePoint(seedSavepoint).Error; err != nil {
		s.warn(ctx, "order number seed savepoint failed", err)
		return 0
	}

	var ids []string
	err := tx.WithContext(ctx).
		Model(&models.Order{}).
		Where("internal_order_number LIKE ?", OrderNumberPrefix+"%").
		Pluck("internal_order_number", &ids).Error
	if err != nil {
		tx.RollbackTo(seedSavepoint)
		s.warn(ctx, "order number seed scan failed; starting from the first number", err)
		return 0
	}
	return Highest(ids)
}

func (s *Sequencer) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}
