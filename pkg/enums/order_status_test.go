package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{"pending to deposited", OrderStatusPending, OrderStatusDeposited, true},
		{"pending to cancelled", OrderStatusPending, OrderStatusCancelled, true},
		{"pending skips to shipping", OrderStatusPending, OrderStatusShipping, false},
		{"deposited to confirmed", OrderStatusDeposited, OrderStatusConfirmed, true},
		{"confirmed to shipping", OrderStatusConfirmed, OrderStatusShipping, true},
		{"shipping to delivered", OrderStatusShipping, OrderStatusDelivered, true},
		{"delivered to completed", OrderStatusDelivered, OrderStatusCompleted, true},
		{"delivered back to shipping", OrderStatusDelivered, OrderStatusShipping, false},
		{"completed is terminal", OrderStatusCompleted, OrderStatusCancelled, false},
		{"cancelled is terminal", OrderStatusCancelled, OrderStatusPending, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to))
		})
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusShipping.IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("deposited")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusDeposited, status)

	_, err = ParseOrderStatus("refunded")
	require.Error(t, err)
}

func TestShipmentStatusTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    ShipmentStatus
		to      ShipmentStatus
		allowed bool
	}{
		{"created to assigned", ShipmentStatusCreated, ShipmentStatusAssigned, true},
		{"assigned to picked up", ShipmentStatusAssigned, ShipmentStatusPickedUp, true},
		{"picked up to delivering", ShipmentStatusPickedUp, ShipmentStatusDelivering, true},
		{"delivering to delivered", ShipmentStatusDelivering, ShipmentStatusDelivered, true},
		{"created skips to delivered", ShipmentStatusCreated, ShipmentStatusDelivered, false},
		{"delivering to failed", ShipmentStatusDelivering, ShipmentStatusFailed, true},
		{"delivered is terminal", ShipmentStatusDelivered, ShipmentStatusFailed, false},
		{"pickup without prior assignment", ShipmentStatusCreated, ShipmentStatusPickedUp, true},
		{"delivery without a delivering ping", ShipmentStatusPickedUp, ShipmentStatusDelivered, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to))
		})
	}
}
