package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusValid(t *testing.T) {
	for _, s := range []OrderStatus{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled} {
		assert.True(t, s.Valid(), "expected %s to be valid", s)
	}
	assert.False(t, OrderStatus("REFUNDED").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		// Happy path is linear.
		{OrderPending, OrderProcessing, true},
		{OrderProcessing, OrderShipped, true},
		{OrderShipped, OrderDelivered, true},

		// No skipping ahead or moving backwards.
		{OrderPending, OrderShipped, false},
		{OrderPending, OrderDelivered, false},
		{OrderProcessing, OrderDelivered, false},
		{OrderProcessing, OrderPending, false},
		{OrderShipped, OrderProcessing, false},

		// Cancellation only before shipping.
		{OrderPending, OrderCancelled, true},
		{OrderProcessing, OrderCancelled, true},
		{OrderShipped, OrderCancelled, false},
		{OrderDelivered, OrderCancelled, false},

		// Terminal states stay terminal.
		{OrderDelivered, OrderProcessing, false},
		{OrderCancelled, OrderPending, false},
		{OrderCancelled, OrderProcessing, false},

		// Self transitions are not transitions.
		{OrderPending, OrderPending, false},
		{OrderDelivered, OrderDelivered, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransitionTo(tt.to)
		assert.Equal(t, tt.allowed, got, "%s -> %s", tt.from, tt.to)
	}
}
