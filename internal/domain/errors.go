package domain

import (
	"errors"
	"fmt"
)

// Error kinds returned by the services. Handlers branch on these with
// errors.Is, so every failure a caller can act on has its own kind.
var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrInvalidTransition = errors.New("illegal order status transition")
	ErrForbidden         = errors.New("operation not permitted for this role")
	ErrConflict          = errors.New("conflicting concurrent update")
	ErrUnavailable       = errors.New("storage temporarily unavailable")
)

// InsufficientStockError reports a failed reservation together with the
// quantity that was still available, so the caller can offer the user a
// smaller amount instead of a bare failure.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
