package enums

import "fmt"

// ProductionType distinguishes a whole-order batch from a selected subset.
type ProductionType string

const (
	ProductionTypeFull    ProductionType = "full"
	ProductionTypePartial ProductionType = "partial"
)

var validProductionTypes = []ProductionType{
	ProductionTypeFull,
	ProductionTypePartial,
}

// String implements fmt.Stringer.
func (p ProductionType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductionType.
func (p ProductionType) IsValid() bool {
	for _, candidate := range validProductionTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductionType converts raw input into a ProductionType.
func ParseProductionType(value string) (ProductionType, error) {
	for _, candidate := range validProductionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid production type %q", value)
}

// ProductionStatus tracks a production batch on the shop floor.
type ProductionStatus string

const (
	ProductionStatusPending      ProductionStatus = "pending"
	ProductionStatusInProduction ProductionStatus = "in_production"
	ProductionStatusCompleted    ProductionStatus = "completed"
)

var validProductionStatuses = []ProductionStatus{
	ProductionStatusPending,
	ProductionStatusInProduction,
	ProductionStatusCompleted,
}

// String implements fmt.Stringer.
func (p ProductionStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductionStatus.
func (p ProductionStatus) IsValid() bool {
	for _, candidate := range validProductionStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// Next returns the single status a record may advance to from p.
func (p ProductionStatus) Next() (ProductionStatus, bool) {
	switch p {
	case ProductionStatusPending:
		return ProductionStatusInProduction, true
	case ProductionStatusInProduction:
		return ProductionStatusCompleted, true
	default:
		return "", false
	}
}

// Deletable reports whether a record in this status may still be removed.
func (p ProductionStatus) Deletable() bool {
	return p == ProductionStatusPending || p == ProductionStatusInProduction
}

// ParseProductionStatus converts raw input into a ProductionStatus.
func ParseProductionStatus(value string) (ProductionStatus, error) {
	for _, candidate := range validProductionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid production status %q", value)
}
