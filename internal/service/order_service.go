package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CerenTurker/E-Commerce-API/internal/domain"
	"github.com/CerenTurker/E-Commerce-API/internal/payment"
	"github.com/CerenTurker/E-Commerce-API/internal/repository"
)

// OrderService drives post-checkout transitions. Cancel and refund put
// the reserved stock back inside the same transaction that flips the
// status, so a crash can never credit stock twice or lose it.
type OrderService struct {
	store   repository.Store
	gateway payment.Gateway
	logger  *zap.Logger
}

func NewOrderService(store repository.Store, gateway payment.Gateway, logger *zap.Logger) *OrderService {
	return &OrderService{
		store:   store,
		gateway: gateway,
		logger:  logger,
	}
}

// GetOrder returns the order if the caller owns it or is an admin.
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID, userID string, role domain.Role) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID && role != domain.RoleAdmin {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

// ListOrders returns the caller's orders, newest first by store order.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.store.ListOrdersByUser(ctx, userID)
}

// Cancel is only open to the owner while the order is still PENDING.
// All line quantities go back to stock atomically with the status flip;
// cancelling twice fails the transition check instead of crediting
// stock again.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID, userID string) (*domain.Order, error) {
	return s.transition(ctx, orderID, func(order *domain.Order, tx repository.Tx) error {
		if order.UserID != userID {
			return repository.ErrOrderNotFound
		}
		if !order.Status.CanTransitionTo(domain.OrderStatusCancelled) {
			return fmt.Errorf("cannot cancel order in status %s: %w", order.Status, domain.ErrInvalidTransition)
		}

		if err := s.releaseLines(ctx, tx, order); err != nil {
			return err
		}
		order.Status = domain.OrderStatusCancelled
		return nil
	})
}

// Refund is admin-only and requires a captured payment. Stock returns
// and both statuses move to REFUNDED in one transaction.
func (s *OrderService) Refund(ctx context.Context, orderID uuid.UUID, role domain.Role) (*domain.Order, error) {
	if role != domain.RoleAdmin {
		return nil, fmt.Errorf("refund requires admin role: %w", domain.ErrForbidden)
	}

	return s.transition(ctx, orderID, func(order *domain.Order, tx repository.Tx) error {
		if !order.PaymentStatus.CanTransitionTo(domain.PaymentStatusRefunded) {
			return fmt.Errorf("cannot refund order with payment status %s: %w", order.PaymentStatus, domain.ErrInvalidTransition)
		}
		if !order.Status.CanTransitionTo(domain.OrderStatusRefunded) {
			return fmt.Errorf("cannot refund order in status %s: %w", order.Status, domain.ErrInvalidTransition)
		}

		if err := s.releaseLines(ctx, tx, order); err != nil {
			return err
		}
		order.Status = domain.OrderStatusRefunded
		order.PaymentStatus = domain.PaymentStatusRefunded
		return nil
	})
}

// ConfirmPayment is the success callback from the payment collaborator:
// PENDING moves to CONFIRMED and the payment is marked captured.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, orderID, func(order *domain.Order, _ repository.Tx) error {
		if !order.Status.CanTransitionTo(domain.OrderStatusConfirmed) {
			return fmt.Errorf("cannot confirm order in status %s: %w", order.Status, domain.ErrInvalidTransition)
		}
		if !order.PaymentStatus.CanTransitionTo(domain.PaymentStatusPaid) {
			return fmt.Errorf("cannot mark payment %s as paid: %w", order.PaymentStatus, domain.ErrInvalidTransition)
		}
		order.Status = domain.OrderStatusConfirmed
		order.PaymentStatus = domain.PaymentStatusPaid
		return nil
	})
}

// FailPayment is the failure callback: only the payment status moves,
// the order stays PENDING and the charge can be retried.
func (s *OrderService) FailPayment(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, orderID, func(order *domain.Order, _ repository.Tx) error {
		if !order.PaymentStatus.CanTransitionTo(domain.PaymentStatusFailed) {
			return fmt.Errorf("cannot fail payment in status %s: %w", order.PaymentStatus, domain.ErrInvalidTransition)
		}
		order.PaymentStatus = domain.PaymentStatusFailed
		return nil
	})
}

// MarkDelivered is admin-only: CONFIRMED moves to the terminal
// DELIVERED state.
func (s *OrderService) MarkDelivered(ctx context.Context, orderID uuid.UUID, role domain.Role) (*domain.Order, error) {
	if role != domain.RoleAdmin {
		return nil, fmt.Errorf("marking delivered requires admin role: %w", domain.ErrForbidden)
	}

	return s.transition(ctx, orderID, func(order *domain.Order, _ repository.Tx) error {
		if !order.Status.CanTransitionTo(domain.OrderStatusDelivered) {
			return fmt.Errorf("cannot deliver order in status %s: %w", order.Status, domain.ErrInvalidTransition)
		}
		order.Status = domain.OrderStatusDelivered
		return nil
	})
}

// Pay charges the owner's pending order through the gateway and routes
// the outcome into ConfirmPayment or FailPayment. A previously FAILED
// payment is reset to UNPAID first, which is the retry path.
func (s *OrderService) Pay(ctx context.Context, orderID uuid.UUID, userID string) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	if order.Status != domain.OrderStatusPending {
		return nil, fmt.Errorf("cannot pay order in status %s: %w", order.Status, domain.ErrInvalidTransition)
	}

	if order.PaymentStatus == domain.PaymentStatusFailed {
		order, err = s.transition(ctx, orderID, func(o *domain.Order, _ repository.Tx) error {
			if !o.PaymentStatus.CanTransitionTo(domain.PaymentStatusUnpaid) {
				return fmt.Errorf("cannot retry payment in status %s: %w", o.PaymentStatus, domain.ErrInvalidTransition)
			}
			o.PaymentStatus = domain.PaymentStatusUnpaid
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if order.PaymentStatus != domain.PaymentStatusUnpaid {
		return nil, fmt.Errorf("order payment already %s: %w", order.PaymentStatus, domain.ErrInvalidTransition)
	}

	charged, err := s.gateway.Charge(ctx, order.ID, order.Total)
	if err != nil {
		return nil, err
	}
	if !charged {
		s.logger.Info("payment declined", zap.String("order_id", orderID.String()))
		return s.FailPayment(ctx, orderID)
	}
	return s.ConfirmPayment(ctx, orderID)
}

// transition loads the order, applies fn, and persists the resulting
// statuses, all inside one unit of work.
func (s *OrderService) transition(ctx context.Context, orderID uuid.UUID, fn func(order *domain.Order, tx repository.Tx) error) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		order, err = tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(order, tx); err != nil {
			return err
		}
		return tx.UpdateOrderStatus(ctx, orderID, order.Status, order.PaymentStatus)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order transition",
		zap.String("order_id", orderID.String()),
		zap.String("status", order.Status.String()),
		zap.String("payment_status", order.PaymentStatus.String()))
	return order, nil
}

// releaseLines credits every line quantity back to the ledger.
func (s *OrderService) releaseLines(ctx context.Context, tx repository.Tx, order *domain.Order) error {
	for _, line := range order.Lines {
		if err := tx.ReleaseStock(ctx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}
