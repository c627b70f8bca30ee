package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/haiminhngo/farmlink-backend/pkg/enums"
)

// OrderCreatedEvent signals a new retailer order with stock reserved.
type OrderCreatedEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	RetailerID       uuid.UUID `json:"retailer_id"`
	FarmID           uuid.UUID `json:"farm_id"`
	ProductID        uuid.UUID `json:"product_id"`
	Quantity         int       `json:"quantity"`
	TotalPriceVND    int64     `json:"total_price_vnd"`
	DepositAmountVND int64     `json:"deposit_amount_vnd"`
}

// OrderCancelledEvent is emitted when an order is cancelled and stock released.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	RetailerID  uuid.UUID `json:"retailer_id"`
	FarmID      uuid.UUID `json:"farm_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderStatusChangedEvent reports a lifecycle transition on an order.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
}

// PaymentOutcomeEvent is emitted when a gateway callback settles a payment.
type PaymentOutcomeEvent struct {
	PaymentID       uuid.UUID           `json:"payment_id"`
	OrderID         *uuid.UUID          `json:"order_id,omitempty"`
	SubscriptionID  *uuid.UUID          `json:"subscription_id,omitempty"`
	Type            enums.PaymentType   `json:"type"`
	Status          enums.PaymentStatus `json:"status"`
	AmountVND       int64               `json:"amount_vnd"`
	GatewayTxnRef   string              `json:"gateway_txn_ref"`
	GatewayRespCode string              `json:"gateway_resp_code,omitempty"`
}

// ShipmentCreatedEvent signals a shipment was opened for a confirmed order.
type ShipmentCreatedEvent struct {
	ShipmentID uuid.UUID  `json:"shipment_id"`
	OrderID    uuid.UUID  `json:"order_id"`
	DriverID   *uuid.UUID `json:"driver_id,omitempty"`
}

// ShipmentPickedUpEvent reports a QR-verified pickup.
type ShipmentPickedUpEvent struct {
	ShipmentID uuid.UUID `json:"shipment_id"`
	OrderID    uuid.UUID `json:"order_id"`
	DriverID   uuid.UUID `json:"driver_id"`
	PickedUpAt time.Time `json:"picked_up_at"`
}

// ShipmentDeliveredEvent reports a QR-verified delivery. The proof image is
// carried when the driver captured one.
type ShipmentDeliveredEvent struct {
	ShipmentID       uuid.UUID `json:"shipment_id"`
	OrderID          uuid.UUID `json:"order_id"`
	DriverID         uuid.UUID `json:"driver_id"`
	DeliveredAt      time.Time `json:"delivered_at"`
	DeliveryImageURL string    `json:"delivery_image_url,omitempty"`
}

// NotificationCreatedEvent fans a new in-app notification out to push channels.
type NotificationCreatedEvent struct {
	NotificationID uuid.UUID              `json:"notification_id"`
	UserID         uuid.UUID              `json:"user_id"`
	Type           enums.NotificationType `json:"type"`
	Title          string                 `json:"title"`
}
