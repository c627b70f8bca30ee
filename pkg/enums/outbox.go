package enums

import "fmt"

// OutboxEventType names a domain event recorded in the transactional outbox.
type OutboxEventType string

const (
	OutboxEventOrderCreated        OutboxEventType = "order.created"
	OutboxEventOrderCancelled      OutboxEventType = "order.cancelled"
	OutboxEventOrderStatusChanged  OutboxEventType = "order.status_changed"
	OutboxEventPaymentSucceeded    OutboxEventType = "payment.succeeded"
	OutboxEventPaymentFailed       OutboxEventType = "payment.failed"
	OutboxEventShipmentCreated     OutboxEventType = "shipment.created"
	OutboxEventShipmentPickedUp    OutboxEventType = "shipment.picked_up"
	OutboxEventShipmentDelivered   OutboxEventType = "shipment.delivered"
	OutboxEventNotificationCreated OutboxEventType = "notification.created"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxEventOrderCreated,
	OutboxEventOrderCancelled,
	OutboxEventOrderStatusChanged,
	OutboxEventPaymentSucceeded,
	OutboxEventPaymentFailed,
	OutboxEventShipmentCreated,
	OutboxEventShipmentPickedUp,
	OutboxEventShipmentDelivered,
	OutboxEventNotificationCreated,
}

// String implements fmt.Stringer.
func (t OutboxEventType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known OutboxEventType.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateOrder        OutboxAggregateType = "order"
	OutboxAggregatePayment      OutboxAggregateType = "payment"
	OutboxAggregateShipment     OutboxAggregateType = "shipment"
	OutboxAggregateNotification OutboxAggregateType = "notification"
)

// String implements fmt.Stringer.
func (t OutboxAggregateType) String() string {
	return string(t)
}
