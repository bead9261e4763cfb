package repository

import (
	"context"
	"fmt"

	"github.com/CerenTurker/E-Commerce-API/internal/domain"
	"github.com/google/uuid"
)

// Entity-specific sentinels. Each wraps the matching domain kind so
// callers can branch either on the exact entity or on the broad kind.
var (
	ErrProductNotFound      = fmt.Errorf("product: %w", domain.ErrNotFound)
	ErrCartNotFound         = fmt.Errorf("cart: %w", domain.ErrNotFound)
	ErrCartLineNotFound     = fmt.Errorf("cart line: %w", domain.ErrNotFound)
	ErrAddressNotFound      = fmt.Errorf("address: %w", domain.ErrNotFound)
	ErrOrderNotFound        = fmt.Errorf("order: %w", domain.ErrNotFound)
	ErrDuplicateOrderNumber = fmt.Errorf("order number already taken: %w", domain.ErrConflict)
)

// Reader holds the operations available both inside and outside a
// transaction.
type Reader interface {
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)

	// GetCart returns the user's cart with its lines, or ErrCartNotFound
	// if the user never created one.
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	GetCartLine(ctx context.Context, lineID uuid.UUID) (*domain.CartLine, error)

	GetAddress(ctx context.Context, addressID uuid.UUID) (*domain.Address, error)

	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error)
}

// Tx is one unit of work: every mutation issued through it commits or
// rolls back together.
type Tx interface {
	Reader

	// EnsureCart returns the user's cart, creating it on first use.
	EnsureCart(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertCartLine(ctx context.Context, line *domain.CartLine) error
	DeleteCartLine(ctx context.Context, lineID uuid.UUID) error
	ClearCart(ctx context.Context, cartID uuid.UUID) error

	// CreateOrder persists the order together with its lines.
	CreateOrder(ctx context.Context, order *domain.Order) error
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, payment domain.PaymentStatus) error

	// ReserveStock decrements the product's stock iff enough remains,
	// as a single conditional update. Two concurrent reservations for
	// the last unit can never both succeed. Fails with
	// *domain.InsufficientStockError, stock untouched.
	ReserveStock(ctx context.Context, productID int64, qty int) error

	// ReleaseStock increments stock back, reversing a prior reservation.
	// There is no upper bound: a release only ever undoes a reserve.
	ReleaseStock(ctx context.Context, productID int64, qty int) error
}

// Store is the transactional store handle threaded through every
// service; tests substitute the in-memory implementation.
type Store interface {
	Reader

	// WithinTx runs fn inside one transaction. A non-nil error from fn
	// rolls everything back and is returned as-is; commit/begin
	// failures wrap domain.ErrUnavailable.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}
