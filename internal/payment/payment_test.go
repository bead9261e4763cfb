package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CerenTurker/E-Commerce-API/internal/domain"
)

type flakyGateway struct {
	err     error
	charges int
}

func (g *flakyGateway) Charge(context.Context, uuid.UUID, decimal.Decimal) (bool, error) {
	g.charges++
	if g.err != nil {
		return false, g.err
	}
	return true, nil
}

func TestSandbox_NilDecisionApprovesEverything(t *testing.T) {
	gw := NewSandbox(nil)

	ok, err := gw.Charge(context.Background(), uuid.New(), decimal.RequireFromString("76.00"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSandbox_DecisionSeesChargeDetails(t *testing.T) {
	orderID := uuid.New()
	amount := decimal.RequireFromString("165.00")
	gw := NewSandbox(func(id uuid.UUID, amt decimal.Decimal) bool {
		assert.Equal(t, orderID, id)
		assert.True(t, amount.Equal(amt))
		return false
	})

	ok, err := gw.Charge(context.Background(), orderID, amount)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBreaker_PassesThroughWhileClosed(t *testing.T) {
	inner := &flakyGateway{}
	gw := NewBreakerGateway(inner)

	ok, err := gw.Charge(context.Background(), uuid.New(), decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, inner.charges)
}

func TestBreaker_DeclinedChargeIsNotAFailure(t *testing.T) {
	gw := NewBreakerGateway(NewSandbox(func(uuid.UUID, decimal.Decimal) bool { return false }))
	ctx := context.Background()

	// declines are business outcomes, not provider faults, so many in a
	// row must not trip the circuit
	for i := 0; i < 20; i++ {
		ok, err := gw.Charge(ctx, uuid.New(), decimal.RequireFromString("10.00"))
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyGateway{err: errors.New("provider timeout")}
	gw := NewBreakerGateway(inner)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := gw.Charge(ctx, uuid.New(), decimal.RequireFromString("10.00"))
		require.ErrorIs(t, err, inner.err)
	}

	// sixth call fails fast without reaching the provider
	_, err := gw.Charge(ctx, uuid.New(), decimal.RequireFromString("10.00"))
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, 5, inner.charges)
}
