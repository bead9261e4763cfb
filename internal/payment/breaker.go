package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"github.com/CerenTurker/E-Commerce-API/internal/domain"
)

// BreakerGateway wraps a Gateway in a circuit breaker so a flapping
// provider fails fast instead of tying up request handlers. An open
// circuit surfaces as Unavailable, which callers may retry.
type BreakerGateway struct {
	inner Gateway
	cb    *gobreaker.CircuitBreaker[bool]
}

func NewBreakerGateway(inner Gateway) *BreakerGateway {
	settings := gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &BreakerGateway{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[bool](settings),
	}
}

func (g *BreakerGateway) Charge(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) (bool, error) {
	ok, err := g.cb.Execute(func() (bool, error) {
		return g.inner.Charge(ctx, orderID, amount)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false, fmt.Errorf("payment gateway circuit open: %w", domain.ErrUnavailable)
	}
	return ok, err
}
