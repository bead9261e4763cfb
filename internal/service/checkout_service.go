package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/CerenTurker/E-Commerce-API/internal/cache"
	"github.com/CerenTurker/E-Commerce-API/internal/domain"
	"github.com/CerenTurker/E-Commerce-API/internal/pricing"
	"github.com/CerenTurker/E-Commerce-API/internal/repository"
)

// CheckoutService turns a mutable cart into an immutable order inside
// one transaction: stock is re-validated and reserved, prices are
// frozen onto the order lines, and the cart is emptied. Either every
// one of those effects lands or none does.
type CheckoutService struct {
	store  repository.Store
	cache  cache.CartCache
	logger *zap.Logger
}

func NewCheckoutService(store repository.Store, cartCache cache.CartCache, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		store:  store,
		cache:  cartCache,
		logger: logger,
	}
}

// CheckoutRequest carries everything the orchestrator needs; identity
// comes from the auth collaborator, not from the payload.
type CheckoutRequest struct {
	UserID        string
	AddressID     uuid.UUID
	PaymentMethod string
	Notes         string
}

// Checkout runs the whole checkout transaction and returns the created
// order. On any failure the caller observes state exactly as before the
// call: no stock change, no partial order, cart untouched.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, error) {
	if req.PaymentMethod == "" {
		return nil, fmt.Errorf("payment method is required: %w", domain.ErrValidation)
	}

	var order *domain.Order
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		cart, err := tx.GetCart(ctx, req.UserID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.ErrEmptyCart
		}
		if err != nil {
			return err
		}
		if len(cart.Lines) == 0 {
			return domain.ErrEmptyCart
		}

		address, err := tx.GetAddress(ctx, req.AddressID)
		if err != nil {
			return err
		}
		if address.UserID != req.UserID {
			// someone else's address looks exactly like a missing one
			return repository.ErrAddressNotFound
		}

		order, err = s.buildOrder(ctx, tx, req, cart, address)
		if err != nil {
			return err
		}

		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}

		// Reserve every line; the first shortage aborts the whole
		// transaction, so a partially reserved checkout cannot exist.
		for _, line := range order.Lines {
			if err := tx.ReserveStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		return tx.ClearCart(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(req.UserID)
	s.logger.Info("checkout completed",
		zap.String("user_id", req.UserID),
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.Total.StringFixed(2)))
	return order, nil
}

// buildOrder prices the cart at current catalog prices and freezes the
// result into an order in state PENDING/UNPAID.
func (s *CheckoutService) buildOrder(ctx context.Context, tx repository.Tx, req CheckoutRequest, cart *domain.Cart, address *domain.Address) (*domain.Order, error) {
	orderID := uuid.New()
	orderLines := make([]domain.OrderLine, 0, len(cart.Lines))
	priceLines := make([]pricing.Line, 0, len(cart.Lines))

	for _, line := range cart.Lines {
		product, err := tx.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}

		subtotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		orderLines = append(orderLines, domain.OrderLine{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: product.ID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
			Subtotal:  subtotal,
		})
		priceLines = append(priceLines, pricing.Line{UnitPrice: product.Price, Quantity: line.Quantity})
	}

	quote := pricing.Price(priceLines)
	return &domain.Order{
		ID:              orderID,
		OrderNumber:     newOrderNumber(time.Now()),
		UserID:          req.UserID,
		ShippingAddress: address.Snapshot(),
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusUnpaid,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		Subtotal:        quote.Subtotal,
		Tax:             quote.Tax,
		Shipping:        quote.Shipping,
		Total:           quote.Total,
		Lines:           orderLines,
	}, nil
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newOrderNumber builds the human-readable token ORD-<base36 ts>-<rand>.
// It does not try to be collision-free: the unique constraint on the
// order number is the real guard, and a collision comes back to the
// caller as a retryable Conflict.
func newOrderNumber(now time.Time) string {
	var random strings.Builder
	for i := 0; i < 4; i++ {
		random.WriteByte(base36Alphabet[rand.Intn(len(base36Alphabet))])
	}
	return fmt.Sprintf("ORD-%s-%s", strconv.FormatInt(now.UnixMilli(), 36), random.String())
}

func (s *CheckoutService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cart cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}
