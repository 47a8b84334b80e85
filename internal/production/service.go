package production

import (
	"context"
	"errors"
	"fmt"

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

// DocumentNamer names the document a production record points at.
// Rendering the document is someone else's job.
type DocumentNamer interface {
	DocumentRef(order *models.Order, productionNumber int) string
}

// StorageKeyNamer yields production/<internal order number>/P<n>.pdf.
type StorageKeyNamer struct{}

func (StorageKeyNamer) DocumentRef(order *models.Order, productionNumber int) string {
	return fmt.Sprintf("production/%s/P%d.pdf", order.InternalOrderNumber, productionNumber)
}

type CreateRecordInput struct {
	Actor              orders.Actor
	OrderID            uuid.UUID
	Type               enums.ProductionType
	SelectedQuantities map[uuid.UUID]int
	Notes              *string
}

type UpdateStatusInput struct {
	Actor    orders.Actor
	RecordID uuid.UUID
	Status   enums.ProductionStatus
}

type DeleteRecordInput struct {
	Actor    orders.Actor
	RecordID uuid.UUID
}

type Service interface {
	CreateRecord(ctx context.Context, input CreateRecordInput) (*models.ProductionRecord, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.ProductionRecord, error)
	DeleteRecord(ctx context.Context, input DeleteRecordInput) error
	ListRecords(ctx context.Context, orderID uuid.UUID) ([]models.ProductionRecord, error)
	RemainingForOrder(ctx context.Context, orderID uuid.UUID) ([]ledger.ItemLedger, error)
}

type service struct {
	repo   Repository
	orders orders.Repository
	ledger ledger.Repository
	writer *orders.Writer
	namer  DocumentNamer
}

// NewService builds the production service. A nil namer uses StorageKeyNamer.
func NewService(repo Repository, orderRepo orders.Repository, ledgerRepo ledger.Repository, writer *orders.Writer, namer DocumentNamer) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("production repository required")
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
	if namer == nil {
		namer = StorageKeyNamer{}
	}
	return &service{repo: repo, orders: orderRepo, ledger: ledgerRepo, writer: writer, namer: namer}, nil
}

func (s *service) CreateRecord(ctx context.Context, input CreateRecordInput) (*models.ProductionRecord, error) {
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown production type %q", input.Type))
	}

	var created *models.ProductionRecord
	err := s.writer.WithLockedOrder(ctx, "create_production_record", input.OrderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		if orders.IsClosed(order.Status) {
			return pkgerrors.Rejected(pkgerrors.ReasonOrderClosed, "cannot produce for a cancelled order")
		}
		snapshot, err := s.ledger.WithTx(tx).LoadSnapshot(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order ledger")
		}
		if snapshot.HasFullProduction() {
			return pkgerrors.Rejected(pkgerrors.ReasonFullProductionExists, "a full production record already exists for this order")
		}

		var selected map[uuid.UUID]int
		if input.Type == enums.ProductionTypePartial {
			if err := snapshot.CheckProductionSelection(input.SelectedQuantities); err != nil {
				return err
			}
			selected = input.SelectedQuantities
		}

		repo := s.repo.WithTx(tx)
		highest, err := repo.MaxProductionNumber(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read production numbers")
		}
		number := highest + 1
		ref := s.namer.DocumentRef(order, number)

		record := &models.ProductionRecord{
			ID:                 uuid.New(),
			OrderID:            order.ID,
			ProductionNumber:   number,
			Type:               input.Type,
			SelectedQuantities: selected,
			Status:             enums.ProductionStatusPending,
			DocumentRef:        &ref,
			Notes:              input.Notes,
		}
		if err := repo.Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create production record")
		}

		if err := s.writer.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductionRecordCreated,
			AggregateType: enums.AggregateProductionRecord,
			AggregateID:   record.ID,
			Actor:         input.Actor.Ref(),
			Data: payloads.ProductionRecordCreatedEvent{
				RecordID:         record.ID,
				OrderID:          order.ID,
				ProductionNumber: record.ProductionNumber,
				Type:             record.Type,
				DocumentRef:      record.DocumentRef,
			},
		}); err != nil {
			return err
		}
		created = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateStatus advances a record exactly one step: pending, in_production, completed.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.ProductionRecord, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown production status %q", input.Status))
	}
	existing, err := s.findRecord(ctx, s.repo, input.RecordID)
	if err != nil {
		return nil, err
	}

	var updated *models.ProductionRecord
	err = s.writer.WithLockedOrder(ctx, "update_production_status", existing.OrderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		repo := s.repo.WithTx(tx)
		record, err := s.findRecord(ctx, repo, input.RecordID)
		if err != nil {
			return err
		}
		from := record.Status
		if next, ok := from.Next(); !ok || next != input.Status {
			return pkgerrors.Rejected(pkgerrors.ReasonInvalidTransition,
				fmt.Sprintf("cannot move production record from %s to %s", from, input.Status)).
				WithDetails(map[string]any{"record_id": record.ID, "from": from, "to": input.Status})
		}
		if err := repo.UpdateStatus(ctx, record.ID, input.Status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update production status")
		}
		record.Status = input.Status

		if err := s.writer.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductionStatusChanged,
			AggregateType: enums.AggregateProductionRecord,
			AggregateID:   record.ID,
			Actor:         input.Actor.Ref(),
			Data: payloads.ProductionStatusChangedEvent{
				RecordID: record.ID,
				OrderID:  order.ID,
				From:     from,
				To:       record.Status,
			},
		}); err != nil {
			return err
		}
		updated = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) DeleteRecord(ctx context.Context, input DeleteRecordInput) error {
	existing, err := s.findRecord(ctx, s.repo, input.RecordID)
	if err != nil {
		return err
	}
	return s.writer.WithLockedOrder(ctx, "delete_production_record", existing.OrderID, func(ctx context.Context, tx *gorm.DB, _ *models.Order) error {
		repo := s.repo.WithTx(tx)
		record, err := s.findRecord(ctx, repo, input.RecordID)
		if err != nil {
			return err
		}
		if !record.Status.Deletable() {
			return pkgerrors.Rejected(pkgerrors.ReasonProductionRecordLocked,
				fmt.Sprintf("production record P%d is %s and can no longer be deleted", record.ProductionNumber, record.Status))
		}
		if err := repo.Delete(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete production record")
		}
		return nil
	})
}

func (s *service) ListRecords(ctx context.Context, orderID uuid.UUID) ([]models.ProductionRecord, error) {
	if _, err := s.orders.FindOrder(ctx, orderID); err != nil {
		return nil, orders.MapOrderError(err, orderID)
	}
	out, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list production records")
	}
	return out, nil
}

// RemainingForOrder reports, per order item, how much is still to be produced.
func (s *service) RemainingForOrder(ctx context.Context, orderID uuid.UUID) ([]ledger.ItemLedger, error) {
	if _, err := s.orders.FindOrder(ctx, orderID); err != nil {
		return nil, orders.MapOrderError(err, orderID)
	}
	snapshot, err := s.ledger.LoadSnapshot(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order ledger")
	}
	return snapshot.Lines(), nil
}

func (s *service) findRecord(ctx context.Context, repo Repository, id uuid.UUID) (*models.ProductionRecord, error) {
	record, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Rejected(pkgerrors.ReasonProductionRecordNotFound, "production record not found").
				WithDetails(map[string]any{"record_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load production record")
	}
	return record, nil
}
