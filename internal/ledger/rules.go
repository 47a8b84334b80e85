package ledger

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

// Line is a requested quantity against one order item.
type Line struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	Quantity    int       `json:"quantity"`
}

// CheckQuantityChange rejects an ordered quantity below what is already out the door.
func (s *Snapshot) CheckQuantityChange(orderItemID uuid.UUID, newQuantity int) error {
	if newQuantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	if _, ok := s.Item(orderItemID); !ok {
		return itemNotFound(orderItemID)
	}
	dispatched := s.DispatchedNet(orderItemID)
	if newQuantity < dispatched {
		return pkgerrors.Rejected(pkgerrors.ReasonQuantityBelowDispatched,
			fmt.Sprintf("cannot set quantity to %d: %d already dispatched", newQuantity, dispatched)).
			WithDetails(map[string]any{
				"order_item_id": orderItemID,
				"requested":     newQuantity,
				"dispatched":    dispatched,
			})
	}
	return nil
}

// CheckRemoval rejects removing an item that still has units dispatched.
func (s *Snapshot) CheckRemoval(orderItemID uuid.UUID) error {
	if _, ok := s.Item(orderItemID); !ok {
		return itemNotFound(orderItemID)
	}
	dispatched := s.DispatchedNet(orderItemID)
	if dispatched != 0 {
		hint := "create a return dispatch for these units before removing the item"
		return pkgerrors.Rejected(pkgerrors.ReasonItemHasDispatches,
			fmt.Sprintf("item has %d dispatched units; %s", dispatched, hint)).
			WithDetails(map[string]any{
				"order_item_id": orderItemID,
				"dispatched":    dispatched,
				"hint":          hint,
			})
	}
	return nil
}

// CheckDispatch validates forward dispatch lines against what remains to be
// dispatched. Lines naming the same item are checked cumulatively.
func (s *Snapshot) CheckDispatch(lines []Line) error {
	pending := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if err := s.checkLine(line); err != nil {
			return err
		}
		dispatched := s.DispatchedNet(line.OrderItemID) + pending[line.OrderItemID]
		remaining := s.RemainingToDispatch(line.OrderItemID) - pending[line.OrderItemID]
		if line.Quantity > remaining {
			return pkgerrors.Rejected(pkgerrors.ReasonExceedsOrderedQuantity,
				fmt.Sprintf("already dispatched: %d, remaining: %d", dispatched, remaining)).
				WithDetails(map[string]any{
					"order_item_id": line.OrderItemID,
					"requested":     line.Quantity,
					"dispatched":    dispatched,
					"remaining":     remaining,
				})
		}
		pending[line.OrderItemID] += line.Quantity
	}
	return nil
}

// CheckReturn validates return lines against the net dispatched quantity.
func (s *Snapshot) CheckReturn(lines []Line) error {
	pending := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if err := s.checkLine(line); err != nil {
			return err
		}
		dispatched := s.DispatchedNet(line.OrderItemID) - pending[line.OrderItemID]
		if line.Quantity > dispatched {
			return pkgerrors.Rejected(pkgerrors.ReasonExceedsDispatchedQuantity,
				fmt.Sprintf("cannot return %d units: only %d dispatched", line.Quantity, dispatched)).
				WithDetails(map[string]any{
					"order_item_id": line.OrderItemID,
					"requested":     line.Quantity,
					"dispatched":    dispatched,
				})
		}
		pending[line.OrderItemID] += line.Quantity
	}
	return nil
}

// CheckProductionSelection validates the per-item quantities of a partial
// production record against what remains to be produced.
func (s *Snapshot) CheckProductionSelection(selected map[uuid.UUID]int) error {
	if len(selected) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "partial production requires at least one selected item")
	}
	for _, item := range s.Items {
		qty, ok := selected[item.ID]
		if !ok {
			continue
		}
		if qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "selected quantity must be greater than zero").
				WithDetails(map[string]any{"order_item_id": item.ID, "quantity": qty})
		}
		remaining := s.RemainingToProduce(item.ID)
		if qty > remaining {
			return pkgerrors.Rejected(pkgerrors.ReasonExceedsRemainingToProduce,
				fmt.Sprintf("requested %d exceeds remaining to produce %d", qty, remaining)).
				WithDetails(map[string]any{
					"order_item_id": item.ID,
					"requested":     qty,
					"remaining":     remaining,
				})
		}
	}
	for id := range selected {
		if _, ok := s.Item(id); !ok {
			return itemNotFound(id)
		}
	}
	return nil
}

// RemainingLines returns a line for every item with units left to dispatch.
func (s *Snapshot) RemainingLines() []Line {
	var out []Line
	for _, item := range s.Items {
		if remaining := s.RemainingToDispatch(item.ID); remaining > 0 {
			out = append(out, Line{OrderItemID: item.ID, Quantity: remaining})
		}
	}
	return out
}

func (s *Snapshot) checkLine(line Line) error {
	if line.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be greater than zero").
			WithDetails(map[string]any{"order_item_id": line.OrderItemID, "quantity": line.Quantity})
	}
	if _, ok := s.Item(line.OrderItemID); !ok {
		return itemNotFound(line.OrderItemID)
	}
	return nil
}

func itemNotFound(orderItemID uuid.UUID) error {
	return pkgerrors.Rejected(pkgerrors.ReasonItemNotFound,
		fmt.Sprintf("order item %s does not belong to this order", orderItemID))
}
