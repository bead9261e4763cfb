package cache

import (
	"context"
	"errors"

	"github.com/CerenTurker/E-Commerce-API/internal/domain"
)

// CartCache holds carts on the read path only; every cart mutation and
// every successful checkout invalidates the entry.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
