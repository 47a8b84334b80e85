package ledger

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// DispatchLine is one dispatch item joined with the type of its dispatch.
type DispatchLine struct {
	DispatchID  uuid.UUID          `gorm:"column:dispatch_id"`
	OrderItemID uuid.UUID          `gorm:"column:order_item_id"`
	Type        enums.DispatchType `gorm:"column:dispatch_type"`
	Quantity    int                `gorm:"column:quantity"`
}

// Snapshot is everything the ledger needs to know about one order. It must be
// loaded after the order row is locked so the figures cannot move underneath
// a validation.
type Snapshot struct {
	OrderID       uuid.UUID
	Items         []models.OrderItem
	DispatchLines []DispatchLine
	Production    []models.ProductionRecord
}

// ItemLedger summarises the cumulative figures for one order item.
type ItemLedger struct {
	OrderItemID         uuid.UUID `json:"order_item_id"`
	InventoryItemID     uuid.UUID `json:"inventory_item_id"`
	Ordered             int       `json:"ordered"`
	Dispatched          int       `json:"dispatched"`
	RemainingToDispatch int       `json:"remaining_to_dispatch"`
	Produced            int       `json:"produced"`
	RemainingToProduce  int       `json:"remaining_to_produce"`
}

// Item looks up an order item of this order.
func (s *Snapshot) Item(orderItemID uuid.UUID) (models.OrderItem, bool) {
	for _, item := range s.Items {
		if item.ID == orderItemID {
			return item, true
		}
	}
	return models.OrderItem{}, false
}

// DispatchedNet is the signed sum of every dispatch line for the item;
// return lines are negative and reduce it.
func (s *Snapshot) DispatchedNet(orderItemID uuid.UUID) int {
	total := 0
	for _, line := range s.DispatchLines {
		if line.OrderItemID == orderItemID {
			total += line.Quantity
		}
	}
	return total
}

// RemainingToDispatch is the ordered quantity not yet (net) dispatched.
func (s *Snapshot) RemainingToDispatch(orderItemID uuid.UUID) int {
	item, ok := s.Item(orderItemID)
	if !ok {
		return 0
	}
	return item.Quantity - s.DispatchedNet(orderItemID)
}

// HasFullProduction reports whether a full production record exists.
func (s *Snapshot) HasFullProduction() bool {
	for _, record := range s.Production {
		if record.Type == enums.ProductionTypeFull {
			return true
		}
	}
	return false
}

// ProducedNet is the quantity covered by production records. A full record
// covers the whole line and supersedes any partial records.
func (s *Snapshot) ProducedNet(orderItemID uuid.UUID) int {
	item, ok := s.Item(orderItemID)
	if !ok {
		return 0
	}
	if s.HasFullProduction() {
		return item.Quantity
	}
	total := 0
	for _, record := range s.Production {
		if record.Type == enums.ProductionTypePartial {
			total += record.SelectedQuantities[orderItemID]
		}
	}
	if total > item.Quantity {
		return item.Quantity
	}
	return total
}

// RemainingToProduce is the ordered quantity not yet covered, floored at zero.
func (s *Snapshot) RemainingToProduce(orderItemID uuid.UUID) int {
	item, ok := s.Item(orderItemID)
	if !ok {
		return 0
	}
	remaining := item.Quantity - s.ProducedNet(orderItemID)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TotalOrdered sums the ordered quantity of every item.
func (s *Snapshot) TotalOrdered() int {
	total := 0
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}

// TotalForwardDispatched sums the lines of every full and partial dispatch.
// Returns are ignored.
func (s *Snapshot) TotalForwardDispatched() int {
	total := 0
	for _, line := range s.DispatchLines {
		if line.Type.IsForward() {
			total += line.Quantity
		}
	}
	return total
}

// Lines reports the per-item figures in item order.
func (s *Snapshot) Lines() []ItemLedger {
	out := make([]ItemLedger, 0, len(s.Items))
	for _, item := range s.Items {
		out = append(out, ItemLedger{
			OrderItemID:         item.ID,
			InventoryItemID:     item.InventoryItemID,
			Ordered:             item.Quantity,
			Dispatched:          s.DispatchedNet(item.ID),
			RemainingToDispatch: s.RemainingToDispatch(item.ID),
			Produced:            s.ProducedNet(item.ID),
			RemainingToProduce:  s.RemainingToProduce(item.ID),
		})
	}
	return out
}
