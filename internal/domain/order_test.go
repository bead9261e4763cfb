package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusPending, OrderStatusRefunded, false},
		{OrderStatusConfirmed, OrderStatusDelivered, true},
		{OrderStatusConfirmed, OrderStatusRefunded, true},
		{OrderStatusConfirmed, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusRefunded, true},
		{OrderStatusDelivered, OrderStatusConfirmed, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusCancelled, false},
		{OrderStatusRefunded, OrderStatusRefunded, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestPaymentStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{PaymentStatusUnpaid, PaymentStatusPaid, true},
		{PaymentStatusUnpaid, PaymentStatusFailed, true},
		{PaymentStatusUnpaid, PaymentStatusRefunded, false},
		{PaymentStatusPaid, PaymentStatusRefunded, true},
		{PaymentStatusPaid, PaymentStatusUnpaid, false},
		{PaymentStatusFailed, PaymentStatusUnpaid, true},
		{PaymentStatusFailed, PaymentStatusPaid, false},
		{PaymentStatusRefunded, PaymentStatusUnpaid, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}
