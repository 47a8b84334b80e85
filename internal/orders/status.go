package orders

import (
	"fmt"

	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

// Status change triggers recorded on order_status_changed events.
const (
	TriggerManual    = "manual"
	TriggerItemAdded = "item_added"
	TriggerDispatch  = "dispatch"
	TriggerDelivery  = "delivery"
)

var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusApproved,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusApproved: {
		enums.OrderStatusInProduction,
		enums.OrderStatusPending,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusInProduction: {
		enums.OrderStatusPartialDispatch,
		enums.OrderStatusDispatched,
		enums.OrderStatusApproved,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPartialDispatch: {
		enums.OrderStatusInProduction,
		enums.OrderStatusDispatched,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusDispatched: {
		enums.OrderStatusDelivered,
		enums.OrderStatusPartialDispatch,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusDelivered: {
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusCancelled: {},
}

// AllowedTransitions lists the statuses a manual update may move to from current.
func AllowedTransitions(current enums.OrderStatus) []enums.OrderStatus {
	allowed := transitions[current]
	out := make([]enums.OrderStatus, len(allowed))
	copy(out, allowed)
	return out
}

// CanTransition reports whether the manual table permits from -> to.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// CheckTransition returns an InvalidTransition rejection when from -> to is not in the table.
func CheckTransition(from, to enums.OrderStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return pkgerrors.Rejected(pkgerrors.ReasonInvalidTransition,
		fmt.Sprintf("cannot move order from %s to %s", from, to)).
		WithDetails(map[string]any{
			"from":    from,
			"to":      to,
			"allowed": AllowedTransitions(from),
		})
}

// StatusAfterDispatch computes the status a forward dispatch leaves the order in.
// totalDispatched includes the dispatch being created.
func StatusAfterDispatch(dispatchType enums.DispatchType, totalOrdered, totalDispatched int) enums.OrderStatus {
	if dispatchType == enums.DispatchTypeFull || totalDispatched >= totalOrdered {
		return enums.OrderStatusDispatched
	}
	return enums.OrderStatusPartialDispatch
}

// IsClosed reports whether automatic transitions must leave the order alone.
func IsClosed(status enums.OrderStatus) bool {
	return status == enums.OrderStatusCancelled
}

// IsTerminal reports whether the order accepts no further items or shipments.
func IsTerminal(status enums.OrderStatus) bool {
	return status == enums.OrderStatusCancelled || status == enums.OrderStatusDelivered
}
