package dispatches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/internal/ledger"
	"github.com/angelmondragon/fulfillment-backend/internal/orders"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox/payloads"
)

type CreateDispatchInput struct {
	Actor              orders.Actor
	OrderID            uuid.UUID
	Type               enums.DispatchType
	Lines              []ledger.Line
	DispatchDate       *time.Time
	Notes              *string
	CourierID          *uuid.UUID
	TrackingID         *string
	ProductionRecordID *uuid.UUID
}

type CreateReturnInput struct {
	Actor        orders.Actor
	OrderID      uuid.UUID
	Lines        []ledger.Line
	DispatchDate *time.Time
	Notes        *string
}

type UpdateStatusInput struct {
	Actor      orders.Actor
	DispatchID uuid.UUID
	Status     enums.ShipmentStatus
}

// Service reconciles dispatches with the order ledger.
type Service interface {
	CreateDispatch(ctx context.Context, input CreateDispatchInput) (*models.Dispatch, error)
	CreateReturnDispatch(ctx context.Context, input CreateReturnInput) (*models.Dispatch, error)
	UpdateDispatchStatus(ctx context.Context, input UpdateStatusInput) (*models.Dispatch, error)
	ListDispatches(ctx context.Context, orderID uuid.UUID) ([]models.Dispatch, error)
}

type service struct {
	repo   Repository
	orders orders.Repository
	ledger ledger.Repository
	writer *orders.Writer
	now    func() time.Time
}

// NewService builds the dispatch service. clock may be nil.
func NewService(repo Repository, orderRepo orders.Repository, ledgerRepo ledger.Repository, writer *orders.Writer, clock func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dispatch repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if writer == nil {
		return nil, fmt.Errorf("order writer required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &service{repo: repo, orders: orderRepo, ledger: ledgerRepo, writer: writer, now: clock}, nil
}

func (s *service) CreateDispatch(ctx context.Context, input CreateDispatchInput) (*models.Dispatch, error) {
	if !input.Type.IsForward() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("dispatch type must be full or partial, got %q", input.Type))
	}

	var created *models.Dispatch
	err := s.writer.WithLockedOrder(ctx, "create_dispatch", input.OrderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		if orders.IsTerminal(order.Status) {
			return pkgerrors.Rejected(pkgerrors.ReasonOrderClosed, "cannot dispatch a "+string(order.Status)+" order")
		}
		snapshot, err := s.ledger.WithTx(tx).LoadSnapshot(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order ledger")
		}

		lines := input.Lines
		if len(lines) == 0 && input.Type == enums.DispatchTypeFull {
			lines = snapshot.RemainingLines()
		}
		if len(lines) == 0 {
			return pkgerrors.Rejected(pkgerrors.ReasonNoItemsToDispatch, "no items to dispatch")
		}
		if err := snapshot.CheckDispatch(lines); err != nil {
			return err
		}
		if input.ProductionRecordID != nil {
			ok, err := s.repo.WithTx(tx).ProductionRecordExists(ctx, order.ID, *input.ProductionRecordID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load production record")
			}
			if !ok {
				return pkgerrors.Rejected(pkgerrors.ReasonProductionRecordNotFound, "production record not found on this order").
					WithDetails(map[string]any{"production_record_id": *input.ProductionRecordID})
			}
		}

		dispatch := s.newDispatch(order.ID, input.Type, lines, 1, input.DispatchDate, input.Notes)
		dispatch.CourierID = input.CourierID
		dispatch.TrackingID = input.TrackingID
		dispatch.ProductionRecordID = input.ProductionRecordID
		if err := s.repo.WithTx(tx).Create(ctx, dispatch); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispatch")
		}

		shipped := snapshot.TotalForwardDispatched()
		for _, line := range lines {
			shipped += line.Quantity
		}
		target := orders.StatusAfterDispatch(input.Type, snapshot.TotalOrdered(), shipped)
		if err := s.writer.SetStatus(ctx, tx, order, target, orders.TriggerDispatch, input.Actor.Ref()); err != nil {
			return err
		}

		if err := s.writer.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDispatchCreated,
			AggregateType: enums.AggregateDispatch,
			AggregateID:   dispatch.ID,
			Actor:         input.Actor.Ref(),
			Data: payloads.DispatchCreatedEvent{
				DispatchID:         dispatch.ID,
				OrderID:            order.ID,
				Type:               dispatch.Type,
				ProductionRecordID: dispatch.ProductionRecordID,
				Lines:              eventLines(lines),
			},
		}); err != nil {
			return err
		}
		created = dispatch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateReturnDispatch records units coming back. Lines carry positive
// quantities; they are stored negated. The order status is left alone.
func (s *service) CreateReturnDispatch(ctx context.Context, input CreateReturnInput) (*models.Dispatch, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.Rejected(pkgerrors.ReasonNoItemsToDispatch, "no items to return")
	}

	var created *models.Dispatch
	err := s.writer.WithLockedOrder(ctx, "create_return", input.OrderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		snapshot, err := s.ledger.WithTx(tx).LoadSnapshot(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order ledger")
		}
		if err := snapshot.CheckReturn(input.Lines); err != nil {
			return err
		}

		dispatch := s.newDispatch(order.ID, enums.DispatchTypeReturn, input.Lines, -1, input.DispatchDate, input.Notes)
		if err := s.repo.WithTx(tx).Create(ctx, dispatch); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return dispatch")
		}

		if err := s.writer.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnCreated,
			AggregateType: enums.AggregateDispatch,
			AggregateID:   dispatch.ID,
			Actor:         input.Actor.Ref(),
			Data: payloads.ReturnCreatedEvent{
				DispatchID: dispatch.ID,
				OrderID:    order.ID,
				Lines:      eventLines(input.Lines),
			},
		}); err != nil {
			return err
		}
		created = dispatch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateDispatchStatus moves a shipment forward. Setting the current status
// again is a no-op; moving backwards is rejected. Once every dispatch of the
// order is delivered the order becomes Delivered.
func (s *service) UpdateDispatchStatus(ctx context.Context, input UpdateStatusInput) (*models.Dispatch, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown shipment status %q", input.Status))
	}
	existing, err := s.repo.FindByID(ctx, input.DispatchID)
	if err != nil {
		return nil, mapDispatchError(err, input.DispatchID)
	}

	var updated *models.Dispatch
	err = s.writer.WithLockedOrder(ctx, "update_dispatch_status", existing.OrderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		repo := s.repo.WithTx(tx)
		dispatch, err := repo.FindByID(ctx, input.DispatchID)
		if err != nil {
			return mapDispatchError(err, input.DispatchID)
		}
		from := dispatch.ShipmentStatus
		if from == input.Status {
			updated = dispatch
			return nil
		}
		if !from.Precedes(input.Status) {
			return pkgerrors.Rejected(pkgerrors.ReasonInvalidTransition,
				fmt.Sprintf("cannot move shipment from %s back to %s", from, input.Status)).
				WithDetails(map[string]any{"dispatch_id": dispatch.ID, "from": from, "to": input.Status})
		}
		if err := repo.UpdateShipmentStatus(ctx, dispatch.ID, input.Status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipment status")
		}
		dispatch.ShipmentStatus = input.Status

		if err := s.writer.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDispatchStatusChanged,
			AggregateType: enums.AggregateDispatch,
			AggregateID:   dispatch.ID,
			Actor:         input.Actor.Ref(),
			Data: payloads.DispatchStatusChangedEvent{
				DispatchID: dispatch.ID,
				OrderID:    order.ID,
				From:       from,
				To:         input.Status,
			},
		}); err != nil {
			return err
		}

		if input.Status == enums.ShipmentStatusDelivered {
			if err := s.markDeliveredIfComplete(ctx, tx, order, input.Actor); err != nil {
				return err
			}
		}
		updated = dispatch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) ListDispatches(ctx context.Context, orderID uuid.UUID) ([]models.Dispatch, error) {
	if _, err := s.orders.FindOrder(ctx, orderID); err != nil {
		return nil, orders.MapOrderError(err, orderID)
	}
	out, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dispatches")
	}
	return out, nil
}

func (s *service) markDeliveredIfComplete(ctx context.Context, tx *gorm.DB, order *models.Order, actor orders.Actor) error {
	if orders.IsTerminal(order.Status) {
		return nil
	}
	statuses, err := s.repo.WithTx(tx).ShipmentStatuses(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment statuses")
	}
	if len(statuses) == 0 {
		return nil
	}
	for _, status := range statuses {
		if status != enums.ShipmentStatusDelivered {
			return nil
		}
	}
	return s.writer.SetStatus(ctx, tx, order, enums.OrderStatusDelivered, orders.TriggerDelivery, actor.Ref())
}

func (s *service) newDispatch(orderID uuid.UUID, kind enums.DispatchType, lines []ledger.Line, sign int, date *time.Time, notes *string) *models.Dispatch {
	dispatchDate := s.now().UTC()
	if date != nil && !date.IsZero() {
		dispatchDate = date.UTC()
	}
	dispatch := &models.Dispatch{
		ID:             uuid.New(),
		OrderID:        orderID,
		Type:           kind,
		DispatchDate:   dispatchDate,
		ShipmentStatus: enums.ShipmentStatusReady,
		Notes:          notes,
		Items:          make([]models.DispatchItem, 0, len(lines)),
	}
	for _, line := range lines {
		dispatch.Items = append(dispatch.Items, models.DispatchItem{
			ID:          uuid.New(),
			DispatchID:  dispatch.ID,
			OrderItemID: line.OrderItemID,
			Quantity:    sign * line.Quantity,
		})
	}
	return dispatch
}

func eventLines(lines []ledger.Line) []payloads.DispatchLine {
	out := make([]payloads.DispatchLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, payloads.DispatchLine{OrderItemID: line.OrderItemID, Quantity: line.Quantity})
	}
	return out
}

func mapDispatchError(err error, dispatchID uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Rejected(pkgerrors.ReasonDispatchNotFound, "dispatch not found").
			WithDetails(map[string]any{"dispatch_id": dispatchID})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispatch")
}
