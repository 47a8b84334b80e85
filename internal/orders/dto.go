package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fulfillment-backend/internal/ledger"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox"
)

// Actor identifies the caller on whose behalf a write runs.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// Ref converts the actor into the outbox envelope form. An anonymous actor
// yields nil.
func (a Actor) Ref() *outbox.ActorRef {
	if a.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: a.UserID, Role: a.Role}
}

type CreateOrderInput struct {
	Actor               Actor
	CustomerID          uuid.UUID
	ExternalOrderNumber *string
	CashDiscount        bool
	Notes               *string
}

type AddItemInput struct {
	Actor           Actor
	OrderID         uuid.UUID
	InventoryItemID uuid.UUID
	Quantity        int
}

type UpdateItemQuantityInput struct {
	Actor       Actor
	OrderItemID uuid.UUID
	Quantity    int
}

type RemoveItemInput struct {
	Actor       Actor
	OrderItemID uuid.UUID
}

type UpdateOrderStatusInput struct {
	Actor   Actor
	OrderID uuid.UUID
	Status  enums.OrderStatus
}

type DeleteOrderInput struct {
	Actor   Actor
	OrderID uuid.UUID
}

// OrderDetail is an order with its items and their cumulative figures.
type OrderDetail struct {
	ID                  uuid.UUID           `json:"id"`
	CustomerID          uuid.UUID           `json:"customer_id"`
	InternalOrderNumber string              `json:"internal_order_number"`
	ExternalOrderNumber *string             `json:"external_order_number,omitempty"`
	CashDiscount        bool                `json:"cash_discount"`
	Status              enums.OrderStatus   `json:"order_status"`
	PaymentStatus       enums.PaymentStatus `json:"payment_status"`
	TotalPrice          decimal.Decimal     `json:"total_price"`
	PaidAmount          decimal.Decimal     `json:"paid_amount"`
	RemainingAmount     decimal.Decimal     `json:"remaining_amount"`
	PaymentNotes        *string             `json:"payment_notes,omitempty"`
	Notes               *string             `json:"notes,omitempty"`
	CreatedBy           uuid.UUID           `json:"created_by"`
	AllowedTransitions  []enums.OrderStatus `json:"allowed_transitions"`
	Items               []OrderItemDetail   `json:"items"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

type OrderItemDetail struct {
	ID                  uuid.UUID       `json:"id"`
	InventoryItemID     uuid.UUID       `json:"inventory_item_id"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	LineTotal           decimal.Decimal `json:"line_total"`
	Dispatched          int             `json:"dispatched"`
	RemainingToDispatch int             `json:"remaining_to_dispatch"`
	Produced            int             `json:"produced"`
	RemainingToProduce  int             `json:"remaining_to_produce"`
}

func newOrderDetail(order *models.Order, snapshot *ledger.Snapshot) *OrderDetail {
	detail := &OrderDetail{
		ID:                  order.ID,
		CustomerID:          order.CustomerID,
		InternalOrderNumber: order.InternalOrderNumber,
		ExternalOrderNumber: order.ExternalOrderNumber,
		CashDiscount:        order.CashDiscount,
		Status:              order.Status,
		PaymentStatus:       order.PaymentStatus,
		TotalPrice:          order.TotalPrice,
		PaidAmount:          order.PaidAmount,
		RemainingAmount:     order.RemainingAmount,
		PaymentNotes:        order.PaymentNotes,
		Notes:               order.Notes,
		CreatedBy:           order.CreatedBy,
		AllowedTransitions:  AllowedTransitions(order.Status),
		Items:               make([]OrderItemDetail, 0, len(order.Items)),
		CreatedAt:           order.CreatedAt,
		UpdatedAt:           order.UpdatedAt,
	}
	for _, item := range order.Items {
		detail.Items = append(detail.Items, OrderItemDetail{
			ID:                  item.ID,
			InventoryItemID:     item.InventoryItemID,
			Quantity:            item.Quantity,
			UnitPrice:           item.UnitPrice,
			LineTotal:           item.LineTotal(),
			Dispatched:          snapshot.DispatchedNet(item.ID),
			RemainingToDispatch: snapshot.RemainingToDispatch(item.ID),
			Produced:            snapshot.ProducedNet(item.ID),
			RemainingToProduce:  snapshot.RemainingToProduce(item.ID),
		})
	}
	return detail
}
