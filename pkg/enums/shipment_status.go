package enums

import "fmt"

// ShipmentStatus is the lifecycle state of a shipment.
type ShipmentStatus string

const (
	ShipmentStatusCreated    ShipmentStatus = "created"
	ShipmentStatusAssigned   ShipmentStatus = "assigned"
	ShipmentStatusPickedUp   ShipmentStatus = "picked_up"
	ShipmentStatusDelivering ShipmentStatus = "delivering"
	ShipmentStatusDelivered  ShipmentStatus = "delivered"
	ShipmentStatusFailed     ShipmentStatus = "failed"
)

var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusCreated,
	ShipmentStatusAssigned,
	ShipmentStatusPickedUp,
	ShipmentStatusDelivering,
	ShipmentStatusDelivered,
	ShipmentStatusFailed,
}

// shipmentTransitions is the allowed forward edge set. Failed is reachable
// from any non-terminal state.
var shipmentTransitions = map[ShipmentStatus][]ShipmentStatus{
	ShipmentStatusCreated:    {ShipmentStatusAssigned, ShipmentStatusPickedUp, ShipmentStatusFailed},
	ShipmentStatusAssigned:   {ShipmentStatusPickedUp, ShipmentStatusFailed},
	ShipmentStatusPickedUp:   {ShipmentStatusDelivering, ShipmentStatusDelivered, ShipmentStatusFailed},
	ShipmentStatusDelivering: {ShipmentStatusDelivered, ShipmentStatusFailed},
	ShipmentStatusDelivered:  {},
	ShipmentStatusFailed:     {},
}

// String implements fmt.Stringer.
func (s ShipmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShipmentStatus.
func (s ShipmentStatus) IsValid() bool {
	for _, candidate := range validShipmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s ShipmentStatus) IsTerminal() bool {
	return s == ShipmentStatusDelivered || s == ShipmentStatusFailed
}

// CanTransition reports whether moving from s to next is allowed.
func (s ShipmentStatus) CanTransition(next ShipmentStatus) bool {
	for _, candidate := range shipmentTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
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
