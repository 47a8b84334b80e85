package errors

// Reason identifies which fulfillment rule rejected an operation. Reasons are
// stable strings surfaced to callers next to the coarser Code.
type Reason string

const (
	ReasonNotAuthenticated          Reason = "NotAuthenticated"
	ReasonCustomerNotFound          Reason = "CustomerNotFound"
	ReasonOrderNotFound             Reason = "OrderNotFound"
	ReasonItemNotFound              Reason = "ItemNotFound"
	ReasonDispatchNotFound          Reason = "DispatchNotFound"
	ReasonProductionRecordNotFound  Reason = "ProductionRecordNotFound"
	ReasonFollowupNotFound          Reason = "FollowupNotFound"
	ReasonInvalidTransition         Reason = "InvalidTransition"
	ReasonQuantityBelowDispatched   Reason = "QuantityBelowDispatched"
	ReasonItemHasDispatches         Reason = "ItemHasDispatches"
	ReasonExceedsOrderedQuantity    Reason = "ExceedsOrderedQuantity"
	ReasonExceedsDispatchedQuantity Reason = "ExceedsDispatchedQuantity"
	ReasonExceedsRemainingToProduce Reason = "ExceedsRemainingToProduce"
	ReasonFullProductionExists      Reason = "FullProductionAlreadyExists"
	ReasonProductionRecordLocked    Reason = "ProductionRecordLocked"
	ReasonPaymentRequiresDispatch   Reason = "PaymentRequiresDispatch"
	ReasonNoItemsToDispatch         Reason = "NoItemsToDispatch"
	ReasonOrderClosed               Reason = "OrderClosed"
	ReasonOrderBusy                 Reason = "OrderBusy"
)

var codeByReason = map[Reason]Code{
	ReasonNotAuthenticated:          CodeUnauthorized,
	ReasonCustomerNotFound:          CodeNotFound,
	ReasonOrderNotFound:             CodeNotFound,
	ReasonItemNotFound:              CodeNotFound,
	ReasonDispatchNotFound:          CodeNotFound,
	ReasonProductionRecordNotFound:  CodeNotFound,
	ReasonFollowupNotFound:          CodeNotFound,
	ReasonInvalidTransition:         CodeStateConflict,
	ReasonQuantityBelowDispatched:   CodeStateConflict,
	ReasonItemHasDispatches:         CodeStateConflict,
	ReasonExceedsOrderedQuantity:    CodeStateConflict,
	ReasonExceedsDispatchedQuantity: CodeStateConflict,
	ReasonExceedsRemainingToProduce: CodeStateConflict,
	ReasonFullProductionExists:      CodeStateConflict,
	ReasonProductionRecordLocked:    CodeStateConflict,
	ReasonPaymentRequiresDispatch:   CodeStateConflict,
	ReasonNoItemsToDispatch:         CodeValidation,
	ReasonOrderClosed:               CodeStateConflict,
	ReasonOrderBusy:                 CodeConflict,
}

// CodeForReason returns the code a reason is reported under.
func CodeForReason(reason Reason) Code {
	if code, ok := codeByReason[reason]; ok {
		return code
	}
	return CodeInternal
}

// Rejected builds an error for a rule violation, deriving the code from the reason.
func Rejected(reason Reason, message string) *Error {
	return &Error{code: CodeForReason(reason), reason: reason, message: message}
}

// HasReason reports whether err (or anything it wraps) was rejected for reason.
func HasReason(err error, reason Reason) bool {
	typed := As(err)
	return typed != nil && typed.reason == reason
}
