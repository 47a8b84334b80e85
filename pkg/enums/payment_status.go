package enums

import "fmt"

// PaymentStatus tracks how much of an order has been paid.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPartial,
	PaymentStatusPaid,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

// PaymentUpdate is the action a collaborator requests on an order's payment.
type PaymentUpdate string

const (
	PaymentUpdateComplete PaymentUpdate = "complete"
	PaymentUpdatePartial  PaymentUpdate = "partial"
	PaymentUpdatePending  PaymentUpdate = "pending"
)

var validPaymentUpdates = []PaymentUpdate{
	PaymentUpdateComplete,
	PaymentUpdatePartial,
	PaymentUpdatePending,
}

// IsValid reports whether the value is a known PaymentUpdate.
func (p PaymentUpdate) IsValid() bool {
	for _, candidate := range validPaymentUpdates {
		if candidate == p {
			return true
		}
	}
	return false
}

// Status maps the requested update to the stored payment status.
func (p PaymentUpdate) Status() PaymentStatus {
	switch p {
	case PaymentUpdateComplete:
		return PaymentStatusPaid
	case PaymentUpdatePartial:
		return PaymentStatusPartial
	default:
		return PaymentStatusPending
	}
}

// ParsePaymentUpdate converts raw input into a PaymentUpdate.
func ParsePaymentUpdate(value string) (PaymentUpdate, error) {
	for _, candidate := range validPaymentUpdates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment update %q", value)
}
