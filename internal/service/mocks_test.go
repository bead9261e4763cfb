package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/CerenTurker/E-Commerce-API/internal/cache"
	"github.com/CerenTurker/E-Commerce-API/internal/domain"
	"github.com/CerenTurker/E-Commerce-API/internal/repository"
)

// fakeCache implements cache.CartCache in memory and counts
// invalidations so tests can assert cache behavior.
type fakeCache struct {
	mu      sync.Mutex
	carts   map[string]*domain.Cart
	deletes int
	getErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{carts: make(map[string]*domain.Cart)}
}

func (c *fakeCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	cart, ok := c.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (c *fakeCache) Set(_ context.Context, userID string, cart *domain.Cart) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carts[userID] = cart
	return nil
}

func (c *fakeCache) Delete(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, userID)
	c.deletes++
	return nil
}

func (c *fakeCache) deleteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletes
}

// fakeGateway implements payment.Gateway with a scripted outcome.
type fakeGateway struct {
	approve bool
	err     error
	charges int
}

func (g *fakeGateway) Charge(context.Context, uuid.UUID, decimal.Decimal) (bool, error) {
	g.charges++
	if g.err != nil {
		return false, g.err
	}
	return g.approve, nil
}

func seedProduct(store *repository.MemoryStore, id int64, price string, stock int) {
	store.SeedProduct(domain.Product{
		ID:     id,
		SKU:    uuid.NewString(),
		Name:   "product",
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Active: true,
	})
}

func seedAddress(store *repository.MemoryStore, userID string) uuid.UUID {
	id := uuid.New()
	store.SeedAddress(domain.Address{
		ID:         id,
		UserID:     userID,
		Recipient:  "Test Recipient",
		Line1:      "1 Test Street",
		City:       "Testville",
		PostalCode: "00001",
		Country:    "US",
	})
	return id
}

func newTestCartService(store *repository.MemoryStore) (*CartService, *fakeCache) {
	c := newFakeCache()
	return NewCartService(store, c, zap.NewNop()), c
}

func newTestCheckoutService(store *repository.MemoryStore) *CheckoutService {
	return NewCheckoutService(store, newFakeCache(), zap.NewNop())
}

func newTestOrderService(store *repository.MemoryStore, gateway *fakeGateway) *OrderService {
	if gateway == nil {
		gateway = &fakeGateway{approve: true}
	}
	return NewOrderService(store, gateway, zap.NewNop())
}

// checkoutCart seeds a cart through the cart service and runs checkout,
// returning the created order.
func checkoutCart(store *repository.MemoryStore, userID string, addressID uuid.UUID, items map[int64]int) (*domain.Order, error) {
	carts, _ := newTestCartService(store)
	for productID, qty := range items {
		if err := carts.AddItem(context.Background(), userID, productID, qty); err != nil {
			return nil, err
		}
	}
	return newTestCheckoutService(store).Checkout(context.Background(), CheckoutRequest{
		UserID:        userID,
		AddressID:     addressID,
		PaymentMethod: "card",
	})
}
