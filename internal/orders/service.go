package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/internal/ledger"
	"github.com/angelmondragon/fulfillment-backend/pkg/db"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox/payloads"
)

const internalOrderNumberConstraint = "internal_order_number"

// Service exposes the order aggregate operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	AddItem(ctx context.Context, input AddItemInput) (*models.OrderItem, error)
	UpdateItemQuantity(ctx context.Context, input UpdateItemQuantityInput) (*models.OrderItem, error)
	RemoveItem(ctx context.Context, input RemoveItemInput) error
	UpdateOrderStatus(ctx context.Context, input UpdateOrderStatusInput) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	DeleteOrder(ctx context.Context, input DeleteOrderInput) error
}

type directoryReader interface {
	FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	FindInventoryItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
}

type numberSequencer interface {
	Next(ctx context.Context, tx *gorm.DB) (string, error)
}

// FollowupScheduler writes the payment followup schedule of a cash-discount
// order once the order has committed.
type FollowupScheduler interface {
	ScheduleFollowups(ctx context.Context, orderID uuid.UUID, from time.Time, actor *outbox.ActorRef) error
}

// ServiceParams wires the orders service.
type ServiceParams struct {
	Repository Repository
	Ledger     ledger.Repository
	Writer     *Writer
	Directory  directoryReader
	Sequencer  numberSequencer
	Followups  FollowupScheduler
	Logger     *logger.Logger
	Clock      func() time.Time
}

type service struct {
	repo      Repository
	ledger    ledger.Repository
	writer    *Writer
	directory directoryReader
	sequencer numberSequencer
	followups FollowupScheduler
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Writer == nil {
		return nil, fmt.Errorf("order writer required")
	}
	if params.Directory == nil {
		return nil, fmt.Errorf("directory required")
	}
	if params.Sequencer == nil {
		return nil, fmt.Errorf("order number sequencer required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:      params.Repository,
		ledger:    params.Ledger,
		writer:    params.Writer,
		directory: params.Directory,
		sequencer: params.Sequencer,
		followups: params.Followups,
		logg:      params.Logger,
		now:       clock,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.Rejected(pkgerrors.ReasonNotAuthenticated, "authenticated user required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer_id is required")
	}
	if _, err := s.directory.FindCustomer(ctx, input.CustomerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Rejected(pkgerrors.ReasonCustomerNotFound, "customer not found").
				WithDetails(map[string]any{"customer_id": input.CustomerID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}

	order := &models.Order{
		ID:                  uuid.New(),
		CustomerID:          input.CustomerID,
		ExternalOrderNumber: input.ExternalOrderNumber,
		CashDiscount:        input.CashDiscount,
		Status:              enums.OrderStatusPending,
		PaymentStatus:       enums.PaymentStatusPending,
		TotalPrice:          decimal.Zero,
		PaidAmount:          decimal.Zero,
		RemainingAmount:     decimal.Zero,
		Notes:               input.Notes,
		CreatedBy:           input.Actor.UserID,
		CreatedAt:           s.now().UTC(),
	}

	err := s.writer.tx.WithTx(ctx, func(tx *gorm.DB) error {
		number, err := s.sequencer.Next(ctx, tx)
		if err != nil {
			return err
		}
		order.InternalOrderNumber = number

		if err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, internalOrderNumberConstraint) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "internal order number already taken; retry")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		return s.writer.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor.Ref(),
			Data: payloads.OrderCreatedEvent{
				OrderID:             order.ID,
				InternalOrderNumber: order.InternalOrderNumber,
				CustomerID:          order.CustomerID,
				CashDiscount:        order.CashDiscount,
				TotalPrice:          order.TotalPrice,
			},
		})
	})
	s.writer.record("create_order", err)
	if err != nil {
		return nil, err
	}

	if order.CashDiscount && s.followups != nil {
		if err := s.followups.ScheduleFollowups(ctx, order.ID, order.CreatedAt, input.Actor.Ref()); err != nil {
			s.warn(ctx, order.ID, "payment followup scheduling failed", err)
		}
	}
	return order, nil
}

func (s *service) AddItem(ctx context.Context, input AddItemInput) (*models.OrderItem, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	inventory, err := s.directory.FindInventoryItem(ctx, input.InventoryItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Rejected(pkgerrors.ReasonItemNotFound, "inventory item not found").
				WithDetails(map[string]any{"inventory_item_id": input.InventoryItemID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}

	var created *models.OrderItem
	err = s.writer.WithLockedOrder(ctx, "add_item", input.OrderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		if IsTerminal(order.Status) {
			return pkgerrors.Rejected(pkgerrors.ReasonOrderClosed, "items cannot be added to a "+string(order.Status)+" order")
		}
		item := &models.OrderItem{
			ID:              uuid.New(),
			OrderID:         order.ID,
			InventoryItemID: inventory.ID,
			Quantity:        input.Quantity,
			UnitPrice:       inventory.UnitPrice,
		}
		if err := s.repo.WithTx(tx).CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order item")
		}
		if err := s.recomputeTotals(ctx, tx, order); err != nil {
			return err
		}
		if order.Status == enums.OrderStatusPending {
			if err := s.writer.SetStatus(ctx, tx, order, enums.OrderStatusApproved, TriggerItemAdded, input.Actor.Ref()); err != nil {
				return err
			}
		}
		created = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) UpdateItemQuantity(ctx context.Context, input UpdateItemQuantityInput) (*models.OrderItem, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	item, err := s.findItem(ctx, input.OrderItemID)
	if err != nil {
		return nil, err
	}

	err = s.writer.WithLockedOrder(ctx, "update_item_quantity", item.OrderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		snapshot, err := s.ledger.WithTx(tx).LoadSnapshot(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order ledger")
		}
		if err := snapshot.CheckQuantityChange(item.ID, input.Quantity); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).UpdateItemQuantity(ctx, item.ID, input.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item quantity")
		}
		item.Quantity = input.Quantity
		return s.recomputeTotals(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) RemoveItem(ctx context.Context, input RemoveItemInput) error {
	item, err := s.findItem(ctx, input.OrderItemID)
	if err != nil {
		return err
	}

	return s.writer.WithLockedOrder(ctx, "remove_item", item.OrderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		snapshot, err := s.ledger.WithTx(tx).LoadSnapshot(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order ledger")
		}
		if err := snapshot.CheckRemoval(item.ID); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order item")
		}
		return s.recomputeTotals(ctx, tx, order)
	})
}

func (s *service) UpdateOrderStatus(ctx context.Context, input UpdateOrderStatusInput) (*models.Order, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", input.Status))
	}

	var updated *models.Order
	err := s.writer.WithLockedOrder(ctx, "update_order_status", input.OrderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		if err := CheckTransition(order.Status, input.Status); err != nil {
			return err
		}
		if err := s.writer.SetStatus(ctx, tx, order, input.Status, TriggerManual, input.Actor.Ref()); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, MapOrderError(err, orderID)
	}
	snapshot, err := s.ledger.LoadSnapshot(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order ledger")
	}
	return newOrderDetail(order, snapshot), nil
}

func (s *service) DeleteOrder(ctx context.Context, input DeleteOrderInput) error {
	return s.writer.WithLockedOrder(ctx, "delete_order", input.OrderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		if err := s.repo.WithTx(tx).DeleteOrderCascade(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		return s.writer.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor.Ref(),
			Data: payloads.OrderDeletedEvent{
				OrderID:             order.ID,
				InternalOrderNumber: order.InternalOrderNumber,
			},
		})
	})
}

func (s *service) findItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Rejected(pkgerrors.ReasonItemNotFound, "order item not found").
				WithDetails(map[string]any{"order_item_id": itemID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
	}
	return item, nil
}

// recomputeTotals rewrites total_price from the current items. The
// outstanding amount follows the total minus what has been paid.
func (s *service) recomputeTotals(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	items, err := s.repo.WithTx(tx).ListItems(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	remaining := total.Sub(order.PaidAmount)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	if err := s.repo.WithTx(tx).UpdateOrder(ctx, order.ID, map[string]any{
		"total_price":      total,
		"remaining_amount": remaining,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
	}
	order.TotalPrice = total
	order.RemainingAmount = remaining
	return nil
}

func (s *service) warn(ctx context.Context, orderID uuid.UUID, msg string, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}
