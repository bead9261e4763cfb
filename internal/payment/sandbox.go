package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DecisionFunc decides a sandbox charge. Randomness lives in whatever
// func the caller injects, never in the gateway itself, so tests stay
// deterministic.
type DecisionFunc func(orderID uuid.UUID, amount decimal.Decimal) bool

// Sandbox approves or declines charges via the injected decision func
// without talking to any provider.
type Sandbox struct {
	decide DecisionFunc
}

// NewSandbox builds a sandbox gateway; a nil decide approves everything.
func NewSandbox(decide DecisionFunc) *Sandbox {
	if decide == nil {
		decide = func(uuid.UUID, decimal.Decimal) bool { return true }
	}
	return &Sandbox{decide: decide}
}

func (s *Sandbox) Charge(_ context.Context, orderID uuid.UUID, amount decimal.Decimal) (bool, error) {
	return s.decide(orderID, amount), nil
}
