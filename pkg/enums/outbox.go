package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder            OutboxAggregateType = "order"
	AggregateDispatch         OutboxAggregateType = "dispatch"
	AggregateProductionRecord OutboxAggregateType = "production_record"
	AggregatePaymentFollowup  OutboxAggregateType = "payment_followup"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateDispatch,
	AggregateProductionRecord,
	AggregatePaymentFollowup,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderCreated             OutboxEventType = "order_created"
	EventOrderStatusChanged       OutboxEventType = "order_status_changed"
	EventOrderDeleted             OutboxEventType = "order_deleted"
	EventDispatchCreated          OutboxEventType = "dispatch_created"
	EventReturnCreated            OutboxEventType = "return_created"
	EventDispatchStatusChanged    OutboxEventType = "dispatch_status_changed"
	EventProductionRecordCreated  OutboxEventType = "production_record_created"
	EventProductionStatusChanged  OutboxEventType = "production_status_changed"
	EventPaymentStatusChanged     OutboxEventType = "payment_status_changed"
	EventPaymentFollowupDue       OutboxEventType = "payment_followup_due"
	EventPaymentFollowupsRecorded OutboxEventType = "payment_followups_recorded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderDeleted,
	EventDispatchCreated,
	EventReturnCreated,
	EventDispatchStatusChanged,
	EventProductionRecordCreated,
	EventProductionStatusChanged,
	EventPaymentStatusChanged,
	EventPaymentFollowupDue,
	EventPaymentFollowupsRecorded,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
