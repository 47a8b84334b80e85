package dbtest

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	"github.com/angelmondragon/fulfillment-backend/pkg/migrate"
)

// Open returns an isolated in-memory database with every fulfillment table.
// The pool is pinned to one connection so a transaction sees the same memory
// database as the statements around it.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.ApplySQLiteSchema(context.Background(), sqlDB))
	return conn
}

// TxRunner runs fn inside a GORM transaction on db. It satisfies the
// transaction runner the services expect without a full db.Client.
type TxRunner struct {
	DB *gorm.DB
}

func (r TxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.DB.WithContext(ctx).Transaction(fn)
}

// SeedCustomer inserts a customer directory row.
func SeedCustomer(t *testing.T, db *gorm.DB, name string) models.Customer {
	t.Helper()
	customer := models.Customer{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	require.NoError(t, db.Create(&customer).Error)
	return customer
}

// SeedInventoryItem inserts a catalog row priced at unitPrice.
func SeedInventoryItem(t *testing.T, db *gorm.DB, name, unitPrice string) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		ID:        uuid.New(),
		Name:      name,
		UnitPrice: decimal.RequireFromString(unitPrice),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

// SeedOrder inserts an order in status with one item per quantity, each
// priced at 10.00. Items are returned in creation order.
func SeedOrder(t *testing.T, db *gorm.DB, number string, status enums.OrderStatus, quantities ...int) (models.Order, []models.OrderItem) {
	t.Helper()
	customer := SeedCustomer(t, db, "Customer "+number)
	now := time.Now().UTC()
	order := models.Order{
		ID:                  uuid.New(),
		CustomerID:          customer.ID,
		InternalOrderNumber: number,
		Status:              status,
		PaymentStatus:       enums.PaymentStatusPending,
		TotalPrice:          decimal.Zero,
		PaidAmount:          decimal.Zero,
		RemainingAmount:     decimal.Zero,
		CreatedBy:           uuid.New(),
		CreatedAt:           now,
	}
	require.NoError(t, db.Omit("Items").Create(&order).Error)

	items := make([]models.OrderItem, 0, len(quantities))
	for i, qty := range quantities {
		inventory := SeedInventoryItem(t, db, fmt.Sprintf("Item %s-%d", number, i+1), "10.00")
		item := models.OrderItem{
			ID:              uuid.New(),
			OrderID:         order.ID,
			InventoryItemID: inventory.ID,
			Quantity:        qty,
			UnitPrice:       inventory.UnitPrice,
			CreatedAt:       now.Add(time.Duration(i) * time.Millisecond),
		}
		require.NoError(t, db.Create(&item).Error)
		items = append(items, item)
	}
	return order, items
}

// SeedDispatch inserts a dispatch with one line per entry of quantities.
// Return quantities are stored negated, the way the reconciler writes them.
func SeedDispatch(t *testing.T, db *gorm.DB, orderID uuid.UUID, dispatchType enums.DispatchType, status enums.ShipmentStatus, quantities map[uuid.UUID]int) models.Dispatch {
	t.Helper()
	dispatch := models.Dispatch{
		ID:             uuid.New(),
		OrderID:        orderID,
		Type:           dispatchType,
		DispatchDate:   time.Now().UTC(),
		ShipmentStatus: status,
	}
	require.NoError(t, db.Omit("Items").Create(&dispatch).Error)
	for itemID, qty := range quantities {
		if dispatchType == enums.DispatchTypeReturn {
			qty = -qty
		}
		line := models.DispatchItem{ID: uuid.New(), DispatchID: dispatch.ID, OrderItemID: itemID, Quantity: qty}
		require.NoError(t, db.Create(&line).Error)
		dispatch.Items = append(dispatch.Items, line)
	}
	return dispatch
}
