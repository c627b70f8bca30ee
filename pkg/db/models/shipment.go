package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/haiminhngo/farmlink-backend/pkg/enums"
)

// Shipment tracks transport of one order. One shipment per order.
type Shipment struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	DriverID         *uuid.UUID           `gorm:"column:driver_id;type:uuid"`
	Status           enums.ShipmentStatus `gorm:"column:status;type:shipment_status;not null;default:created"`
	VehicleInfo      *string              `gorm:"column:vehicle_info;type:text"`
	PickupAddress    string               `gorm:"column:pickup_address;type:text;not null"`
	DeliveryAddress  string               `gorm:"column:delivery_address;type:text;not null"`
	CurrentLocation  *string              `gorm:"column:current_location;type:text"`
	PickedUpAt       *time.Time           `gorm:"column:picked_up_at"`
	DeliveredAt      *time.Time           `gorm:"column:delivered_at"`
	DeliveryImageURL *string              `gorm:"column:delivery_image_url;type:text"`
	FailureReason    *string              `gorm:"column:failure_reason;type:text"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
