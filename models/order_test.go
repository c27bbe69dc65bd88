package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	const (
		P = StatusProcessing
		C = StatusConfirmed
		S = StatusShipped
		O = StatusOutForDelivery
		D = StatusDelivered
		X = StatusCancelled
	)
	allowed := map[OrderStatus][]OrderStatus{
		P: {P, C, S, O, D, X},
		C: {C, S, O, D, X},
		S: {S, O, D, X},
		O: {O, D, X},
		D: {D},
		X: {X},
	}

	for _, from := range AllStatuses {
		ok := make(map[OrderStatus]bool)
		for _, to := range allowed[from] {
			ok[to] = true
		}
		for _, to := range AllStatuses {
			assert.Equal(t, ok[to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatus_UnknownStatusesNeverTransition(t *testing.T) {
	for _, s := range AllStatuses {
		assert.False(t, s.CanTransitionTo("Lost"), "%s -> Lost", s)
		assert.False(t, OrderStatus("Lost").CanTransitionTo(s), "Lost -> %s", s)
	}
	assert.False(t, OrderStatus("").CanTransitionTo(""))
}

func TestOrderStatus_Terminal(t *testing.T) {
	for _, s := range AllStatuses {
		assert.Equal(t, s == StatusDelivered || s == StatusCancelled, s.Terminal(), string(s))
	}
}

func TestTrackingNumberFor(t *testing.T) {
	assert.Equal(t, "TRK400123", TrackingNumberFor("1736942400123"))
	assert.Equal(t, "TRK42", TrackingNumberFor("42"))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail(" ana@example.com "))
	for _, bad := range []string{"", "ana", "ana@", "ana@example", "a b@example.com"} {
		assert.False(t, ValidEmail(bad), bad)
	}
}
