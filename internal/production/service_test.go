package production

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/internal/ledger"
	"github.com/angelmondragon/fulfillment-backend/internal/orders"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/dbtest"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox"
)

func newTestService(t *testing.T) (Service, *gorm.DB, *outbox.Repository) {
	t.Helper()
	db := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "production-test", Output: io.Discard})
	outboxRepo := outbox.NewRepository(db)
	orderRepo := orders.NewRepository(db)

	writer, err := orders.NewWriter(orders.WriterParams{
		Repository: orderRepo,
		Tx:         dbtest.TxRunner{DB: db},
		Outbox:     outbox.NewService(outboxRepo, logg),
	})
	require.NoError(t, err)

	svc, err := NewService(NewRepository(db), orderRepo, ledger.NewRepository(db), writer, nil)
	require.NoError(t, err)
	return svc, db, outboxRepo
}

func TestStorageKeyNamer(t *testing.T) {
	order := &models.Order{InternalOrderNumber: "SK07"}
	assert.Equal(t, "production/SK07/P3.pdf", StorageKeyNamer{}.DocumentRef(order, 3))
}

func TestProductionNumbersArePerOrder(t *testing.T) {
	svc, db, outboxRepo := newTestService(t)
	first, firstItems := dbtest.SeedOrder(t, db, "SK01", enums.OrderStatusInProduction, 10)
	second, _ := dbtest.SeedOrder(t, db, "SK02", enums.OrderStatusInProduction, 4)
	ctx := context.Background()

	p1, err := svc.CreateRecord(ctx, CreateRecordInput{
		OrderID:            first.ID,
		Type:               enums.ProductionTypePartial,
		SelectedQuantities: map[uuid.UUID]int{firstItems[0].ID: 4},
	})
	require.NoError(t, err)
	p2, err := svc.CreateRecord(ctx, CreateRecordInput{
		OrderID:            first.ID,
		Type:               enums.ProductionTypePartial,
		SelectedQuantities: map[uuid.UUID]int{firstItems[0].ID: 3},
	})
	require.NoError(t, err)
	other, err := svc.CreateRecord(ctx, CreateRecordInput{OrderID: second.ID, Type: enums.ProductionTypeFull})
	require.NoError(t, err)

	assert.Equal(t, 1, p1.ProductionNumber)
	assert.Equal(t, 2, p2.ProductionNumber)
	assert.Equal(t, 1, other.ProductionNumber)
	assert.Equal(t, enums.ProductionStatusPending, p2.Status)
	require.NotNil(t, p2.DocumentRef)
	assert.Equal(t, "production/SK01/P2.pdf", *p2.DocumentRef)

	rows, err := outboxRepo.ListByAggregate(ctx, p1.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventProductionRecordCreated, rows[0].EventType)

	stored, err := svc.ListRecords(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 4, stored[0].SelectedQuantities[firstItems[0].ID])
}

func TestPartialSelectionCannotExceedRemaining(t *testing.T) {
	svc, db, _ := newTestService(t)
	order, items := dbtest.SeedOrder(t, db, "SK03", enums.OrderStatusInProduction, 10)
	ctx := context.Background()

	_, err := svc.CreateRecord(ctx, CreateRecordInput{
		OrderID:            order.ID,
		Type:               enums.ProductionTypePartial,
		SelectedQuantities: map[uuid.UUID]int{items[0].ID: 7},
	})
	require.NoError(t, err)

	_, err = svc.CreateRecord(ctx, CreateRecordInput{
		OrderID:            order.ID,
		Type:               enums.ProductionTypePartial,
		SelectedQuantities: map[uuid.UUID]int{items[0].ID: 4},
	})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonExceedsRemainingToProduce))

	remaining, err := svc.RemainingForOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, 7, remaining[0].Produced)
	assert.Equal(t, 3, remaining[0].RemainingToProduce)
}

func TestFullRecordSupersedesEverything(t *testing.T) {
	svc, db, _ := newTestService(t)
	order, items := dbtest.SeedOrder(t, db, "SK04", enums.OrderStatusInProduction, 10, 5)
	ctx := context.Background()

	_, err := svc.CreateRecord(ctx, CreateRecordInput{
		OrderID:            order.ID,
		Type:               enums.ProductionTypePartial,
		SelectedQuantities: map[uuid.UUID]int{items[0].ID: 6},
	})
	require.NoError(t, err)

	full, err := svc.CreateRecord(ctx, CreateRecordInput{OrderID: order.ID, Type: enums.ProductionTypeFull})
	require.NoError(t, err)
	assert.Equal(t, 2, full.ProductionNumber)
	assert.Nil(t, full.SelectedQuantities)

	remaining, err := svc.RemainingForOrder(ctx, order.ID)
	require.NoError(t, err)
	for _, line := range remaining {
		assert.Equal(t, line.Ordered, line.Produced)
		assert.Zero(t, line.RemainingToProduce)
	}

	for _, kind := range []enums.ProductionType{enums.ProductionTypeFull, enums.ProductionTypePartial} {
		_, err = svc.CreateRecord(ctx, CreateRecordInput{
			OrderID:            order.ID,
			Type:               kind,
			SelectedQuantities: map[uuid.UUID]int{items[1].ID: 1},
		})
		require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonFullProductionExists), string(kind))
	}
}

func TestCreateRecordRejections(t *testing.T) {
	svc, db, _ := newTestService(t)
	order, items := dbtest.SeedOrder(t, db, "SK05", enums.OrderStatusInProduction, 3)
	cancelled, _ := dbtest.SeedOrder(t, db, "SK06", enums.OrderStatusCancelled, 3)

	cases := []struct {
		name   string
		input  CreateRecordInput
		reason pkgerrors.Reason
		code   pkgerrors.Code
	}{
		{name: "unknown type", input: CreateRecordInput{OrderID: order.ID, Type: "rush"}, code: pkgerrors.CodeValidation},
		{name: "empty selection", input: CreateRecordInput{OrderID: order.ID, Type: enums.ProductionTypePartial}, code: pkgerrors.CodeValidation},
		{name: "zero quantity", input: CreateRecordInput{OrderID: order.ID, Type: enums.ProductionTypePartial, SelectedQuantities: map[uuid.UUID]int{items[0].ID: 0}}, code: pkgerrors.CodeValidation},
		{name: "foreign item", input: CreateRecordInput{OrderID: order.ID, Type: enums.ProductionTypePartial, SelectedQuantities: map[uuid.UUID]int{uuid.New(): 1}}, reason: pkgerrors.ReasonItemNotFound},
		{name: "unknown order", input: CreateRecordInput{OrderID: uuid.New(), Type: enums.ProductionTypeFull}, reason: pkgerrors.ReasonOrderNotFound},
		{name: "cancelled order", input: CreateRecordInput{OrderID: cancelled.ID, Type: enums.ProductionTypeFull}, reason: pkgerrors.ReasonOrderClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateRecord(context.Background(), tc.input)
			require.Error(t, err)
			if tc.reason != "" {
				require.True(t, pkgerrors.HasReason(err, tc.reason), "got %v", err)
				return
			}
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, tc.code, typed.Code())
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.ProductionRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateStatusMovesOneStepForward(t *testing.T) {
	svc, db, _ := newTestService(t)
	order, _ := dbtest.SeedOrder(t, db, "SK07", enums.OrderStatusInProduction, 3)
	ctx := context.Background()
	record, err := svc.CreateRecord(ctx, CreateRecordInput{OrderID: order.ID, Type: enums.ProductionTypeFull})
	require.NoError(t, err)

	steps := []struct {
		to     enums.ProductionStatus
		wantOK bool
	}{
		{enums.ProductionStatusCompleted, false},
		{enums.ProductionStatusPending, false},
		{enums.ProductionStatusInProduction, true},
		{enums.ProductionStatusInProduction, false},
		{enums.ProductionStatusPending, false},
		{enums.ProductionStatusCompleted, true},
		{enums.ProductionStatusInProduction, false},
	}
	for i, step := range steps {
		updated, err := svc.UpdateStatus(ctx, UpdateStatusInput{RecordID: record.ID, Status: step.to})
		if step.wantOK {
			require.NoError(t, err, "step %d", i)
			assert.Equal(t, step.to, updated.Status)
			continue
		}
		require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInvalidTransition), "step %d: %v", i, err)
	}

	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{RecordID: uuid.New(), Status: enums.ProductionStatusInProduction})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonProductionRecordNotFound))
}

func TestDeleteRecord(t *testing.T) {
	svc, db, _ := newTestService(t)
	order, items := dbtest.SeedOrder(t, db, "SK08", enums.OrderStatusInProduction, 6)
	ctx := context.Background()

	deletable, err := svc.CreateRecord(ctx, CreateRecordInput{
		OrderID:            order.ID,
		Type:               enums.ProductionTypePartial,
		SelectedQuantities: map[uuid.UUID]int{items[0].ID: 2},
	})
	require.NoError(t, err)
	dispatch := dbtest.SeedDispatch(t, db, order.ID, enums.DispatchTypePartial, enums.ShipmentStatusReady, map[uuid.UUID]int{items[0].ID: 2})
	require.NoError(t, db.Model(&models.Dispatch{}).Where("id = ?", dispatch.ID).Update("production_record_id", deletable.ID).Error)

	require.NoError(t, svc.DeleteRecord(ctx, DeleteRecordInput{RecordID: deletable.ID}))

	var stored models.Dispatch
	require.NoError(t, db.Where("id = ?", dispatch.ID).First(&stored).Error)
	assert.Nil(t, stored.ProductionRecordID)

	completed, err := svc.CreateRecord(ctx, CreateRecordInput{
		OrderID:            order.ID,
		Type:               enums.ProductionTypePartial,
		SelectedQuantities: map[uuid.UUID]int{items[0].ID: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, completed.ProductionNumber)
	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{RecordID: completed.ID, Status: enums.ProductionStatusInProduction})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{RecordID: completed.ID, Status: enums.ProductionStatusCompleted})
	require.NoError(t, err)

	err = svc.DeleteRecord(ctx, DeleteRecordInput{RecordID: completed.ID})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonProductionRecordLocked))

	err = svc.DeleteRecord(ctx, DeleteRecordInput{RecordID: uuid.New()})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonProductionRecordNotFound))
}
