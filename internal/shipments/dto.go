package shipments

import (
	"github.com/google/uuid"

	"github.com/haiminhngo/farmlink-backend/pkg/enums"
)

// CreateShipmentInput opens transport for a confirmed order.
type CreateShipmentInput struct {
	OrderID         uuid.UUID
	DriverID        *uuid.UUID
	VehicleInfo     *string
	PickupAddress   *string
	DeliveryAddress *string
	ActorUserID     uuid.UUID
	ActorRole       enums.UserRole
}

// ConfirmPickupInput is a driver's QR-verified pickup scan.
type ConfirmPickupInput struct {
	ShipmentID  uuid.UUID
	QRCode      string
	Location    *string
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// ConfirmDeliveryInput is a driver's QR-verified handover scan.
type ConfirmDeliveryInput struct {
	ShipmentID       uuid.UUID
	QRCode           string
	Location         *string
	DeliveryImageURL string
	ActorUserID      uuid.UUID
	ActorRole        enums.UserRole
}

// UpdateStatusInput is the manual override path for managers and the
// assigned driver.
type UpdateStatusInput struct {
	ShipmentID    uuid.UUID
	Target        enums.ShipmentStatus
	Location      *string
	FailureReason *string
	ActorUserID   uuid.UUID
	ActorRole     enums.UserRole
}

// UpdateLocationInput records an in-transit position ping.
type UpdateLocationInput struct {
	ShipmentID  uuid.UUID
	Location    string
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// AssignDriverInput puts a driver on an unassigned shipment.
type AssignDriverInput struct {
	ShipmentID  uuid.UUID
	DriverID    uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// GetShipmentInput scopes a shipment read to the requesting user.
type GetShipmentInput struct {
	ShipmentID  uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}
