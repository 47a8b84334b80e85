package dispatches

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/internal/ledger"
	"github.com/angelmondragon/fulfillment-backend/internal/locks"
	"github.com/angelmondragon/fulfillment-backend/internal/orders"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/dbtest"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox"
)

type busyLocker struct{}

func (busyLocker) WithOrderLock(context.Context, uuid.UUID, func(ctx context.Context) error) error {
	return pkgerrors.Rejected(pkgerrors.ReasonOrderBusy, "order is being updated by another request; retry shortly")
}

var dispatchDay = time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, locker locks.OrderLocker) (Service, *gorm.DB, *outbox.Repository) {
	t.Helper()
	db := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "dispatches-test", Output: io.Discard})
	outboxRepo := outbox.NewRepository(db)
	orderRepo := orders.NewRepository(db)

	writer, err := orders.NewWriter(orders.WriterParams{
		Repository: orderRepo,
		Tx:         dbtest.TxRunner{DB: db},
		Outbox:     outbox.NewService(outboxRepo, logg),
		Locker:     locker,
	})
	require.NoError(t, err)

	svc, err := NewService(NewRepository(db), orderRepo, ledger.NewRepository(db), writer, func() time.Time { return dispatchDay })
	require.NoError(t, err)
	return svc, db, outboxRepo
}

func orderStatus(t *testing.T, db *gorm.DB, orderID uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.Order
	require.NoError(t, db.Where("id = ?", orderID).First(&order).Error)
	return order.Status
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

func remaining(t *testing.T, db *gorm.DB, orderID, itemID uuid.UUID) int {
	t.Helper()
	snapshot, err := ledger.NewRepository(db).LoadSnapshot(context.Background(), orderID)
	require.NoError(t, err)
	return snapshot.RemainingToDispatch(itemID)
}

func TestTwoPartialDispatchesCompleteTheOrder(t *testing.T) {
	svc, db, _ := newTestService(t, nil)
	order, items := dbtest.SeedOrder(t, db, "SK01", enums.OrderStatusInProduction, 10)

	_, err := svc.CreateDispatch(context.Background(), CreateDispatchInput{
		OrderID: order.ID,
		Type:    enums.DispatchTypePartial,
		Lines:   []ledger.Line{{OrderItemID: items[0].ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPartialDispatch, orderStatus(t, db, order.ID))

	second, err := svc.CreateDispatch(context.Background(), CreateDispatchInput{
		OrderID: order.ID,
		Type:    enums.DispatchTypePartial,
		Lines:   []ledger.Line{{OrderItemID: items[0].ID, Quantity: 6}},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusReady, second.ShipmentStatus)
	assert.True(t, dispatchDay.Equal(second.DispatchDate))

	assert.Equal(t, 0, remaining(t, db, order.ID, items[0].ID))
	assert.Equal(t, enums.OrderStatusDispatched, orderStatus(t, db, order.ID))
}

func TestReturnReopensDispatchCapacity(t *testing.T) {
	svc, db, outboxRepo := newTestService(t, nil)
	order, items := dbtest.SeedOrder(t, db, "SK02", enums.OrderStatusInProduction, 10)
	ctx := context.Background()
	line := func(qty int) []ledger.Line { return []ledger.Line{{OrderItemID: items[0].ID, Quantity: qty}} }

	_, err := svc.CreateDispatch(ctx, CreateDispatchInput{OrderID: order.ID, Type: enums.DispatchTypePartial, Lines: line(10)})
	require.NoError(t, err)

	ret, err := svc.CreateReturnDispatch(ctx, CreateReturnInput{OrderID: order.ID, Lines: line(3)})
	require.NoError(t, err)
	assert.Equal(t, enums.DispatchTypeReturn, ret.Type)
	require.Len(t, ret.Items, 1)
	assert.Equal(t, -3, ret.Items[0].Quantity)
	assert.Equal(t, enums.OrderStatusDispatched, orderStatus(t, db, order.ID))

	snapshot, err := ledger.NewRepository(db).LoadSnapshot(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, snapshot.DispatchedNet(items[0].ID))

	_, err = svc.CreateDispatch(ctx, CreateDispatchInput{OrderID: order.ID, Type: enums.DispatchTypePartial, Lines: line(4)})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonExceedsOrderedQuantity))
	assert.Contains(t, err.Error(), "already dispatched: 7, remaining: 3")

	_, err = svc.CreateDispatch(ctx, CreateDispatchInput{OrderID: order.ID, Type: enums.DispatchTypePartial, Lines: line(3)})
	require.NoError(t, err)

	rows, err := outboxRepo.ListByAggregate(ctx, ret.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventReturnCreated, rows[0].EventType)
}

func TestOverDispatchPersistsNothing(t *testing.T) {
	svc, db, _ := newTestService(t, nil)
	order, items := dbtest.SeedOrder(t, db, "SK03", enums.OrderStatusInProduction, 10)

	_, err := svc.CreateDispatch(context.Background(), CreateDispatchInput{
		OrderID: order.ID,
		Type:    enums.DispatchTypePartial,
		Lines:   []ledger.Line{{OrderItemID: items[0].ID, Quantity: 11}},
	})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonExceedsOrderedQuantity))

	assert.Zero(t, countRows(t, db, &models.Dispatch{}))
	assert.Zero(t, countRows(t, db, &models.DispatchItem{}))
	assert.Zero(t, countRows(t, db, &models.OutboxEvent{}))
	assert.Equal(t, enums.OrderStatusInProduction, orderStatus(t, db, order.ID))
}

func TestRepeatedLinesAreValidatedTogether(t *testing.T) {
	svc, db, _ := newTestService(t, nil)
	order, items := dbtest.SeedOrder(t, db, "SK04", enums.OrderStatusInProduction, 5)

	_, err := svc.CreateDispatch(context.Background(), CreateDispatchInput{
		OrderID: order.ID,
		Type:    enums.DispatchTypePartial,
		Lines: []ledger.Line{
			{OrderItemID: items[0].ID, Quantity: 3},
			{OrderItemID: items[0].ID, Quantity: 3},
		},
	})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonExceedsOrderedQuantity))
	assert.Zero(t, countRows(t, db, &models.Dispatch{}))
}

func TestFullDispatchWithoutLinesShipsEverythingLeft(t *testing.T) {
	svc, db, _ := newTestService(t, nil)
	order, items := dbtest.SeedOrder(t, db, "SK05", enums.OrderStatusPartialDispatch, 4, 6)
	dbtest.SeedDispatch(t, db, order.ID, enums.DispatchTypePartial, enums.ShipmentStatusReady, map[uuid.UUID]int{items[0].ID: 4, items[1].ID: 1})

	dispatch, err := svc.CreateDispatch(context.Background(), CreateDispatchInput{OrderID: order.ID, Type: enums.DispatchTypeFull})
	require.NoError(t, err)
	require.Len(t, dispatch.Items, 1)
	assert.Equal(t, items[1].ID, dispatch.Items[0].OrderItemID)
	assert.Equal(t, 5, dispatch.Items[0].Quantity)
	assert.Equal(t, enums.OrderStatusDispatched, orderStatus(t, db, order.ID))

	_, err = svc.CreateDispatch(context.Background(), CreateDispatchInput{OrderID: order.ID, Type: enums.DispatchTypeFull})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonNoItemsToDispatch))
}

func TestCreateDispatchRejections(t *testing.T) {
	svc, db, _ := newTestService(t, nil)
	open, items := dbtest.SeedOrder(t, db, "SK06", enums.OrderStatusInProduction, 5)
	cancelled, cancelledItems := dbtest.SeedOrder(t, db, "SK07", enums.OrderStatusCancelled, 5)
	recordID := uuid.New()

	cases := []struct {
		name   string
		input  CreateDispatchInput
		reason pkgerrors.Reason
		code   pkgerrors.Code
	}{
		{
			name:   "empty partial",
			input:  CreateDispatchInput{OrderID: open.ID, Type: enums.DispatchTypePartial},
			reason: pkgerrors.ReasonNoItemsToDispatch,
		},
		{
			name:   "unknown order",
			input:  CreateDispatchInput{OrderID: uuid.New(), Type: enums.DispatchTypePartial, Lines: []ledger.Line{{OrderItemID: items[0].ID, Quantity: 1}}},
			reason: pkgerrors.ReasonOrderNotFound,
		},
		{
			name:   "cancelled order",
			input:  CreateDispatchInput{OrderID: cancelled.ID, Type: enums.DispatchTypePartial, Lines: []ledger.Line{{OrderItemID: cancelledItems[0].ID, Quantity: 1}}},
			reason: pkgerrors.ReasonOrderClosed,
		},
		{
			name:   "item of another order",
			input:  CreateDispatchInput{OrderID: open.ID, Type: enums.DispatchTypePartial, Lines: []ledger.Line{{OrderItemID: cancelledItems[0].ID, Quantity: 1}}},
			reason: pkgerrors.ReasonItemNotFound,
		},
		{
			name:   "unknown production record",
			input:  CreateDispatchInput{OrderID: open.ID, Type: enums.DispatchTypePartial, Lines: []ledger.Line{{OrderItemID: items[0].ID, Quantity: 1}}, ProductionRecordID: &recordID},
			reason: pkgerrors.ReasonProductionRecordNotFound,
		},
		{
			name:  "return type",
			input: CreateDispatchInput{OrderID: open.ID, Type: enums.DispatchTypeReturn, Lines: []ledger.Line{{OrderItemID: items[0].ID, Quantity: 1}}},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "zero quantity",
			input: CreateDispatchInput{OrderID: open.ID, Type: enums.DispatchTypePartial, Lines: []ledger.Line{{OrderItemID: items[0].ID, Quantity: 0}}},
			code:  pkgerrors.CodeValidation,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateDispatch(context.Background(), tc.input)
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
	assert.Zero(t, countRows(t, db, &models.Dispatch{}))
}

func TestReturnRejectsMoreThanDispatched(t *testing.T) {
	svc, db, _ := newTestService(t, nil)
	order, items := dbtest.SeedOrder(t, db, "SK08", enums.OrderStatusPartialDispatch, 10)
	dbtest.SeedDispatch(t, db, order.ID, enums.DispatchTypePartial, enums.ShipmentStatusDelivered, map[uuid.UUID]int{items[0].ID: 2})

	_, err := svc.CreateReturnDispatch(context.Background(), CreateReturnInput{
		OrderID: order.ID,
		Lines:   []ledger.Line{{OrderItemID: items[0].ID, Quantity: 3}},
	})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonExceedsDispatchedQuantity))

	_, err = svc.CreateReturnDispatch(context.Background(), CreateReturnInput{OrderID: order.ID})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonNoItemsToDispatch))
	assert.Equal(t, int64(1), countRows(t, db, &models.Dispatch{}))
}

func TestUpdateDispatchStatusDeliversOrder(t *testing.T) {
	svc, db, _ := newTestService(t, nil)
	order, items := dbtest.SeedOrder(t, db, "SK09", enums.OrderStatusDispatched, 10)
	first := dbtest.SeedDispatch(t, db, order.ID, enums.DispatchTypePartial, enums.ShipmentStatusPickedUp, map[uuid.UUID]int{items[0].ID: 4})
	second := dbtest.SeedDispatch(t, db, order.ID, enums.DispatchTypePartial, enums.ShipmentStatusReady, map[uuid.UUID]int{items[0].ID: 6})
	ctx := context.Background()

	updated, err := svc.UpdateDispatchStatus(ctx, UpdateStatusInput{DispatchID: first.ID, Status: enums.ShipmentStatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusDelivered, updated.ShipmentStatus)
	assert.Equal(t, enums.OrderStatusDispatched, orderStatus(t, db, order.ID))

	_, err = svc.UpdateDispatchStatus(ctx, UpdateStatusInput{DispatchID: second.ID, Status: enums.ShipmentStatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, orderStatus(t, db, order.ID))
}

func TestUpdateDispatchStatusIsForwardOnly(t *testing.T) {
	svc, db, outboxRepo := newTestService(t, nil)
	order, items := dbtest.SeedOrder(t, db, "SK10", enums.OrderStatusDispatched, 10)
	dispatch := dbtest.SeedDispatch(t, db, order.ID, enums.DispatchTypeFull, enums.ShipmentStatusPickedUp, map[uuid.UUID]int{items[0].ID: 10})
	ctx := context.Background()

	_, err := svc.UpdateDispatchStatus(ctx, UpdateStatusInput{DispatchID: dispatch.ID, Status: enums.ShipmentStatusReady})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInvalidTransition))

	same, err := svc.UpdateDispatchStatus(ctx, UpdateStatusInput{DispatchID: dispatch.ID, Status: enums.ShipmentStatusPickedUp})
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusPickedUp, same.ShipmentStatus)
	rows, err := outboxRepo.ListByAggregate(ctx, dispatch.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = svc.UpdateDispatchStatus(ctx, UpdateStatusInput{DispatchID: uuid.New(), Status: enums.ShipmentStatusDelivered})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonDispatchNotFound))
}

func TestDeliveryLeavesCancelledOrderAlone(t *testing.T) {
	svc, db, _ := newTestService(t, nil)
	order, items := dbtest.SeedOrder(t, db, "SK11", enums.OrderStatusCancelled, 2)
	dispatch := dbtest.SeedDispatch(t, db, order.ID, enums.DispatchTypeFull, enums.ShipmentStatusPickedUp, map[uuid.UUID]int{items[0].ID: 2})

	_, err := svc.UpdateDispatchStatus(context.Background(), UpdateStatusInput{DispatchID: dispatch.ID, Status: enums.ShipmentStatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, orderStatus(t, db, order.ID))
}

func TestDeliveredOrderTakesNoFurtherDispatches(t *testing.T) {
	svc, db, _ := newTestService(t, nil)
	order, items := dbtest.SeedOrder(t, db, "SK14", enums.OrderStatusInProduction, 10)
	ctx := context.Background()

	first, err := svc.CreateDispatch(ctx, CreateDispatchInput{
		OrderID: order.ID,
		Type:    enums.DispatchTypePartial,
		Lines:   []ledger.Line{{OrderItemID: items[0].ID, Quantity: 4}},
	})
	require.NoError(t, err)
	_, err = svc.UpdateDispatchStatus(ctx, UpdateStatusInput{DispatchID: first.ID, Status: enums.ShipmentStatusDelivered})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusDelivered, orderStatus(t, db, order.ID))

	_, err = svc.CreateDispatch(ctx, CreateDispatchInput{
		OrderID: order.ID,
		Type:    enums.DispatchTypePartial,
		Lines:   []ledger.Line{{OrderItemID: items[0].ID, Quantity: 2}},
	})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonOrderClosed), "got %v", err)
	assert.Equal(t, enums.OrderStatusDelivered, orderStatus(t, db, order.ID))
	assert.Equal(t, int64(1), countRows(t, db, &models.Dispatch{}))
}

func TestConcurrentDispatchesNeverOvershipTheOrder(t *testing.T) {
	svc, db, _ := newTestService(t, nil)
	order, items := dbtest.SeedOrder(t, db, "SK15", enums.OrderStatusInProduction, 10)

	const writers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
		other    []error
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateDispatch(context.Background(), CreateDispatchInput{
				OrderID: order.ID,
				Type:    enums.DispatchTypePartial,
				Lines:   []ledger.Line{{OrderItemID: items[0].ID, Quantity: 3}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case pkgerrors.HasReason(err, pkgerrors.ReasonExceedsOrderedQuantity):
				rejected++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, 3, accepted)
	assert.Equal(t, writers-3, rejected)

	var shipped int64
	require.NoError(t, db.Model(&models.DispatchItem{}).
		Where("order_item_id = ?", items[0].ID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&shipped).Error)
	assert.Equal(t, int64(9), shipped)
	assert.Equal(t, 1, remaining(t, db, order.ID, items[0].ID))
	assert.Equal(t, enums.OrderStatusPartialDispatch, orderStatus(t, db, order.ID))
}

func TestBusyOrderWritesNothing(t *testing.T) {
	svc, db, _ := newTestService(t, busyLocker{})
	order, items := dbtest.SeedOrder(t, db, "SK12", enums.OrderStatusInProduction, 3)

	_, err := svc.CreateDispatch(context.Background(), CreateDispatchInput{
		OrderID: order.ID,
		Type:    enums.DispatchTypePartial,
		Lines:   []ledger.Line{{OrderItemID: items[0].ID, Quantity: 1}},
	})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonOrderBusy))
	assert.Zero(t, countRows(t, db, &models.Dispatch{}))
}

func TestListDispatches(t *testing.T) {
	svc, db, _ := newTestService(t, nil)
	order, items := dbtest.SeedOrder(t, db, "SK13", enums.OrderStatusPartialDispatch, 5)
	dbtest.SeedDispatch(t, db, order.ID, enums.DispatchTypePartial, enums.ShipmentStatusReady, map[uuid.UUID]int{items[0].ID: 2})

	out, err := svc.ListDispatches(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0].Items, 1)
	assert.Equal(t, 2, out[0].Items[0].Quantity)

	_, err = svc.ListDispatches(context.Background(), uuid.New())
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonOrderNotFound))
}
