package enums

import "fmt"

// DispatchType distinguishes forward shipments from returns.
type DispatchType string

const (
	DispatchTypeFull    DispatchType = "full"
	DispatchTypePartial DispatchType = "partial"
	DispatchTypeReturn  DispatchType = "return"
)

var validDispatchTypes = []DispatchType{
	DispatchTypeFull,
	DispatchTypePartial,
	DispatchTypeReturn,
}

// String implements fmt.Stringer.
func (d DispatchType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DispatchType.
func (d DispatchType) IsValid() bool {
	for _, candidate := range validDispatchTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsForward reports whether the dispatch sends goods to the customer.
func (d DispatchType) IsForward() bool {
	return d == DispatchTypeFull || d == DispatchTypePartial
}

// ParseDispatchType converts raw input into a DispatchType.
func ParseDispatchType(value string) (DispatchType, error) {
	for _, candidate := range validDispatchTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispatch type %q", value)
}

// ShipmentStatus is the courier-facing state of a dispatch.
type ShipmentStatus string

const (
	ShipmentStatusReady     ShipmentStatus = "ready"
	ShipmentStatusPickedUp  ShipmentStatus = "picked_up"
	ShipmentStatusDelivered ShipmentStatus = "delivered"
)

// validShipmentStatuses is ordered; a status may only move to a later entry.
var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusReady,
	ShipmentStatusPickedUp,
	ShipmentStatusDelivered,
}

// String implements fmt.Stringer.
func (s ShipmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShipmentStatus.
func (s ShipmentStatus) IsValid() bool {
	return s.rank() >= 0
}

// Precedes reports whether s comes strictly before other in the shipment flow.
func (s ShipmentStatus) Precedes(other ShipmentStatus) bool {
	return s.rank() < other.rank()
}

func (s ShipmentStatus) rank() int {
	for i, candidate := range validShipmentStatuses {
		if candidate == s {
			return i
		}
	}
	return -1
}

// ParseShipmentStatus converts raw input into a ShipmentStatus.
func ParseShipmentStatus(value string) (ShipmentStatus, error) {
	for _, candidate := range validShipmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment status %q", value)
}
