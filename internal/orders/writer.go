package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/internal/locks"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type operationRecorder interface {
	IncOperation(operation, outcome string)
}

// WriterParams configures a Writer.
type WriterParams struct {
	Repository Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Locker     locks.OrderLocker
	Metrics    operationRecorder
}

// Writer runs order-scoped writes: advisory lock, one transaction, then the
// order row lock. Dispatch, production and payment writes all go through it.
type Writer struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	locker  locks.OrderLocker
	metrics operationRecorder
}

// NewWriter builds a Writer. A nil Locker falls back to the row lock alone.
func NewWriter(params WriterParams) (*Writer, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	locker := params.Locker
	if locker == nil {
		locker = locks.NoopLocker{}
	}
	return &Writer{
		repo:    params.Repository,
		tx:      params.Tx,
		outbox:  params.Outbox,
		locker:  locker,
		metrics: params.Metrics,
	}, nil
}

// WithLockedOrder runs fn inside a transaction holding the row lock on orderID.
// operation labels the outcome metric.
func (w *Writer) WithLockedOrder(ctx context.Context, operation string, orderID uuid.UUID, fn func(ctx context.Context, tx *gorm.DB, order *models.Order) error) error {
	err := w.locker.WithOrderLock(ctx, orderID, func(ctx context.Context) error {
		return w.tx.WithTx(ctx, func(tx *gorm.DB) error {
			order, err := w.repo.WithTx(tx).LockOrder(ctx, orderID)
			if err != nil {
				return MapOrderError(err, orderID)
			}
			return fn(ctx, tx, order)
		})
	})
	w.record(operation, err)
	return err
}

// SetStatus persists a status change and queues order_status_changed. Moving
// to the current status is a no-op.
func (w *Writer) SetStatus(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, trigger string, actor *outbox.ActorRef) error {
	from := order.Status
	if from == to {
		return nil
	}
	if err := w.repo.WithTx(tx).UpdateOrder(ctx, order.ID, map[string]any{"order_status": to}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order.Status = to
	return w.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderStatusChangedEvent{
			OrderID: order.ID,
			From:    from,
			To:      to,
			Trigger: trigger,
		},
	})
}

// Emit queues an outbox event inside tx.
func (w *Writer) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if err := w.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(event.EventType))
	}
	return nil
}

func (w *Writer) record(operation string, err error) {
	if w.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if typed := pkgerrors.As(err); typed != nil && typed.Reason() != "" {
			outcome = string(typed.Reason())
		}
	}
	w.metrics.IncOperation(operation, outcome)
}

// MapOrderError turns a missing order row into OrderNotFound and wraps
// anything else as a dependency failure.
func MapOrderError(err error, orderID uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Rejected(pkgerrors.ReasonOrderNotFound, "order not found").
			WithDetails(map[string]any{"order_id": orderID})
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
