// Package payment is the boundary to the external payment provider.
// The core never processes real payments; it only routes the gateway's
// success/failure outcome into the order lifecycle.
package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gateway charges an order total. The boolean is the provider's
// business outcome (declined is not an error); a non-nil error means
// the provider could not be reached at all.
type Gateway interface {
	Charge(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) (bool, error)
}
