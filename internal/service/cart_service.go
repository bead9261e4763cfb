package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/CerenTurker/E-Commerce-API/internal/cache"
	"github.com/CerenTurker/E-Commerce-API/internal/domain"
	"github.com/CerenTurker/E-Commerce-API/internal/pricing"
	"github.com/CerenTurker/E-Commerce-API/internal/repository"
)

// CartService mutates the per-user cart. The stock check on mutation is
// advisory only; the checkout transaction is the sole authority, since
// stock keeps moving between add-to-cart and checkout.
type CartService struct {
	store  repository.Store
	cache  cache.CartCache
	logger *zap.Logger
	sfg    singleflight.Group // prevents cache stampede on cart reads
}

func NewCartService(store repository.Store, cartCache cache.CartCache, logger *zap.Logger) *CartService {
	return &CartService{
		store:  store,
		cache:  cartCache,
		logger: logger,
	}
}

// GetCart returns the user's cart plus a summary priced at current
// catalog prices. A user without a cart gets an empty one; nothing is
// persisted by a read.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, *domain.CartSummary, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cart cache get failed", zap.String("user_id", userID), zap.Error(err))
		}

		cart, errGet := s.store.GetCart(ctx, userID)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			return &domain.Cart{
				UserID:    userID,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		// Fill synchronously: an async fill could land after a later
		// mutation's invalidation and resurrect a stale cart.
		if errSet := s.cache.Set(ctx, userID, cart); errSet != nil {
			s.logger.Warn("cart cache set failed", zap.String("user_id", userID), zap.Error(errSet))
		}

		return cart, nil
	})
	if err != nil {
		return nil, nil, err
	}

	cart := v.(*domain.Cart)
	summary, err := s.summarize(ctx, cart)
	if err != nil {
		return nil, nil, err
	}
	return cart, summary, nil
}

// summarize prices the cart at live catalog prices. Carts never freeze
// prices, so the subtotal here can drift from what checkout later
// charges.
func (s *CartService) summarize(ctx context.Context, cart *domain.Cart) (*domain.CartSummary, error) {
	summary := &domain.CartSummary{ItemCount: len(cart.Lines)}

	lines := make([]pricing.Line, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		product, err := s.store.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("price cart line: %w", err)
		}
		summary.TotalQuantity += line.Quantity
		lines = append(lines, pricing.Line{UnitPrice: product.Price, Quantity: line.Quantity})
	}

	summary.Subtotal = pricing.Subtotal(lines)
	return summary, nil
}

// AddItem puts qty units of the product into the user's cart, creating
// the cart on first use and merging into an existing line for the same
// product.
func (s *CartService) AddItem(ctx context.Context, userID string, productID int64, qty int) error {
	if qty < 1 {
		return fmt.Errorf("quantity must be at least 1: %w", domain.ErrValidation)
	}

	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if !product.Active {
			return fmt.Errorf("product %d is not for sale: %w", productID, domain.ErrValidation)
		}

		cart, err := tx.EnsureCart(ctx, userID)
		if err != nil {
			return err
		}

		newQty := qty
		line := cart.FindLine(productID)
		if line != nil {
			newQty += line.Quantity
		}

		// advisory check against live stock; checkout re-validates
		if newQty > product.Stock {
			return &domain.InsufficientStockError{
				ProductID: productID,
				Requested: newQty,
				Available: product.Stock,
			}
		}

		if line == nil {
			line = &domain.CartLine{
				ID:        uuid.New(),
				CartID:    cart.ID,
				ProductID: productID,
				AddedAt:   time.Now(),
			}
		}
		line.Quantity = newQty
		return tx.UpsertCartLine(ctx, line)
	})
	if err != nil {
		return err
	}

	s.invalidateCache(userID)
	return nil
}

// UpdateItem sets the quantity on a line the user owns. Quantity zero
// removes the line. A line belonging to someone else reports NotFound,
// never Forbidden, so line ids cannot be probed for existence.
func (s *CartService) UpdateItem(ctx context.Context, userID string, lineID uuid.UUID, qty int) error {
	if qty < 0 {
		return fmt.Errorf("quantity must not be negative: %w", domain.ErrValidation)
	}

	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		line, err := s.ownedLine(ctx, tx, userID, lineID)
		if err != nil {
			return err
		}

		if qty == 0 {
			return tx.DeleteCartLine(ctx, lineID)
		}

		product, err := tx.GetProduct(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if qty > product.Stock {
			return &domain.InsufficientStockError{
				ProductID: line.ProductID,
				Requested: qty,
				Available: product.Stock,
			}
		}

		line.Quantity = qty
		return tx.UpsertCartLine(ctx, line)
	})
	if err != nil {
		return err
	}

	s.invalidateCache(userID)
	return nil
}

// RemoveItem deletes a line the user owns.
func (s *CartService) RemoveItem(ctx context.Context, userID string, lineID uuid.UUID) error {
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := s.ownedLine(ctx, tx, userID, lineID); err != nil {
			return err
		}
		return tx.DeleteCartLine(ctx, lineID)
	})
	if err != nil {
		return err
	}

	s.invalidateCache(userID)
	return nil
}

// Clear deletes every line in the user's cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		cart, err := tx.GetCart(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil // nothing to clear
		}
		if err != nil {
			return err
		}
		return tx.ClearCart(ctx, cart.ID)
	})
	if err != nil {
		return err
	}

	s.invalidateCache(userID)
	return nil
}

// ownedLine fetches the line and verifies it sits in the caller's cart.
// An ownership mismatch is indistinguishable from a missing line.
func (s *CartService) ownedLine(ctx context.Context, tx repository.Tx, userID string, lineID uuid.UUID) (*domain.CartLine, error) {
	line, err := tx.GetCartLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	cart, err := tx.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, ErrCartLineNotOwned
		}
		return nil, err
	}
	if line.CartID != cart.ID {
		return nil, ErrCartLineNotOwned
	}
	return line, nil
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cart cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}
