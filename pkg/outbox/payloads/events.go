package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// OrderCreatedEvent announces a new order and its opening totals.
type OrderCreatedEvent struct {
	OrderID             uuid.UUID       `json:"order_id"`
	InternalOrderNumber string          `json:"internal_order_number"`
	CustomerID          uuid.UUID       `json:"customer_id"`
	CashDiscount        bool            `json:"cash_discount"`
	ItemCount           int             `json:"item_count"`
	TotalPrice          decimal.Decimal `json:"total_price"`
}

// OrderStatusChangedEvent records every order status move and what caused it.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
	Trigger string            `json:"trigger"`
}

// OrderDeletedEvent is emitted once an order and its dependents are gone.
type OrderDeletedEvent struct {
	OrderID             uuid.UUID `json:"order_id"`
	InternalOrderNumber string    `json:"internal_order_number"`
}

// DispatchLine is one order item quantity carried by a dispatch.
type DispatchLine struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	Quantity    int       `json:"quantity"`
}

// DispatchCreatedEvent covers full and partial forward shipments.
type DispatchCreatedEvent struct {
	DispatchID         uuid.UUID          `json:"dispatch_id"`
	OrderID            uuid.UUID          `json:"order_id"`
	Type               enums.DispatchType `json:"dispatch_type"`
	ProductionRecordID *uuid.UUID         `json:"production_record_id,omitempty"`
	Lines              []DispatchLine     `json:"lines"`
}

// ReturnCreatedEvent carries positive returned quantities.
type ReturnCreatedEvent struct {
	DispatchID uuid.UUID      `json:"dispatch_id"`
	OrderID    uuid.UUID      `json:"order_id"`
	Lines      []DispatchLine `json:"lines"`
}

// DispatchStatusChangedEvent reports shipment progress.
type DispatchStatusChangedEvent struct {
	DispatchID uuid.UUID            `json:"dispatch_id"`
	OrderID    uuid.UUID            `json:"order_id"`
	From       enums.ShipmentStatus `json:"from"`
	To         enums.ShipmentStatus `json:"to"`
}

// ProductionRecordCreatedEvent announces a new production batch.
type ProductionRecordCreatedEvent struct {
	RecordID         uuid.UUID            `json:"record_id"`
	OrderID          uuid.UUID            `json:"order_id"`
	ProductionNumber int                  `json:"production_number"`
	Type             enums.ProductionType `json:"production_type"`
	DocumentRef      *string              `json:"document_ref,omitempty"`
}

// ProductionStatusChangedEvent reports one production status step.
type ProductionStatusChangedEvent struct {
	RecordID uuid.UUID              `json:"record_id"`
	OrderID  uuid.UUID              `json:"order_id"`
	From     enums.ProductionStatus `json:"from"`
	To       enums.ProductionStatus `json:"to"`
}

// PaymentStatusChangedEvent carries the amounts after a payment update.
type PaymentStatusChangedEvent struct {
	OrderID         uuid.UUID           `json:"order_id"`
	Status          enums.PaymentStatus `json:"payment_status"`
	PaidAmount      decimal.Decimal     `json:"paid_amount"`
	RemainingAmount decimal.Decimal     `json:"remaining_amount"`
}

// PaymentFollowupsRecordedEvent summarizes the schedule written for a cash-discount order.
type PaymentFollowupsRecordedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	Count     int       `json:"count"`
	FirstDate time.Time `json:"first_date"`
	LastDate  time.Time `json:"last_date"`
}

// PaymentFollowupDueEvent asks the notification layer to chase a payment.
type PaymentFollowupDueEvent struct {
	FollowupID          uuid.UUID `json:"followup_id"`
	OrderID             uuid.UUID `json:"order_id"`
	InternalOrderNumber string    `json:"internal_order_number"`
	CustomerID          uuid.UUID `json:"customer_id"`
	FollowupDate        time.Time `json:"followup_date"`
}
