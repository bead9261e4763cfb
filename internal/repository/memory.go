package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CerenTurker/E-Commerce-API/internal/domain"
)

// MemoryStore implements Store with in-memory maps. It is the test
// double for the Postgres store: one mutex spans each unit of work, and
// rollback restores a snapshot taken at transaction start.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
}

type memoryState struct {
	products     map[int64]*domain.Product
	carts        map[string]*domain.Cart // userID -> cart
	addresses    map[uuid.UUID]*domain.Address
	orders       map[uuid.UUID]*domain.Order
	orderNumbers map[string]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memoryState{
			products:     make(map[int64]*domain.Product),
			carts:        make(map[string]*domain.Cart),
			addresses:    make(map[uuid.UUID]*domain.Address),
			orders:       make(map[uuid.UUID]*domain.Order),
			orderNumbers: make(map[string]uuid.UUID),
		},
	}
}

// SeedProduct inserts or replaces a product (initialization and tests).
func (s *MemoryStore) SeedProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.state.products[p.ID] = &cp
}

// SeedAddress inserts or replaces an address book entry.
func (s *MemoryStore) SeedAddress(a domain.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := a
	s.state.addresses[a.ID] = &cp
}

// WithinTx holds the store lock for the whole unit of work, so memory
// transactions are fully serialized; an error from fn restores the
// pre-transaction snapshot, leaving state exactly as before the call.
func (s *MemoryStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&memoryTx{st: &s.state}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{st: &s.state}).GetProduct(ctx, productID)
}

func (s *MemoryStore) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{st: &s.state}).GetCart(ctx, userID)
}

func (s *MemoryStore) GetCartLine(ctx context.Context, lineID uuid.UUID) (*domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{st: &s.state}).GetCartLine(ctx, lineID)
}

func (s *MemoryStore) GetAddress(ctx context.Context, addressID uuid.UUID) (*domain.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{st: &s.state}).GetAddress(ctx, addressID)
}

func (s *MemoryStore) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{st: &s.state}).GetOrder(ctx, orderID)
}

func (s *MemoryStore) ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{st: &s.state}).ListOrdersByUser(ctx, userID)
}

// memoryTx mutates the live state directly; WithinTx already holds the
// lock and owns the rollback snapshot.
type memoryTx struct {
	st *memoryState
}

func (t *memoryTx) GetProduct(_ context.Context, productID int64) (*domain.Product, error) {
	p, ok := t.st.products[productID]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (t *memoryTx) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	cart, ok := t.st.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return copyCart(cart), nil
}

func (t *memoryTx) GetCartLine(_ context.Context, lineID uuid.UUID) (*domain.CartLine, error) {
	for _, cart := range t.st.carts {
		for i := range cart.Lines {
			if cart.Lines[i].ID == lineID {
				cp := cart.Lines[i]
				return &cp, nil
			}
		}
	}
	return nil, ErrCartLineNotFound
}

func (t *memoryTx) GetAddress(_ context.Context, addressID uuid.UUID) (*domain.Address, error) {
	a, ok := t.st.addresses[addressID]
	if !ok {
		return nil, ErrAddressNotFound
	}
	cp := *a
	return &cp, nil
}

func (t *memoryTx) GetOrder(_ context.Context, orderID uuid.UUID) (*domain.Order, error) {
	o, ok := t.st.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (t *memoryTx) ListOrdersByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	var orders []*domain.Order
	for _, o := range t.st.orders {
		if o.UserID == userID {
			orders = append(orders, copyOrder(o))
		}
	}
	return orders, nil
}

func (t *memoryTx) EnsureCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if _, ok := t.st.carts[userID]; !ok {
		now := time.Now()
		t.st.carts[userID] = &domain.Cart{
			ID:        uuid.New(),
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return t.GetCart(ctx, userID)
}

func (t *memoryTx) UpsertCartLine(_ context.Context, line *domain.CartLine) error {
	cart := t.cartByID(line.CartID)
	if cart == nil {
		return ErrCartNotFound
	}
	for i := range cart.Lines {
		if cart.Lines[i].ProductID == line.ProductID {
			cart.Lines[i].Quantity = line.Quantity
			cart.UpdatedAt = time.Now()
			return nil
		}
	}
	cart.Lines = append(cart.Lines, *line)
	cart.UpdatedAt = time.Now()
	return nil
}

func (t *memoryTx) DeleteCartLine(_ context.Context, lineID uuid.UUID) error {
	for _, cart := range t.st.carts {
		for i := range cart.Lines {
			if cart.Lines[i].ID == lineID {
				cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
				cart.UpdatedAt = time.Now()
				return nil
			}
		}
	}
	return ErrCartLineNotFound
}

func (t *memoryTx) ClearCart(_ context.Context, cartID uuid.UUID) error {
	cart := t.cartByID(cartID)
	if cart == nil {
		return ErrCartNotFound
	}
	cart.Lines = nil
	cart.UpdatedAt = time.Now()
	return nil
}

func (t *memoryTx) CreateOrder(_ context.Context, order *domain.Order) error {
	if _, taken := t.st.orderNumbers[order.OrderNumber]; taken {
		return ErrDuplicateOrderNumber
	}
	now := time.Now()
	cp := copyOrder(order)
	cp.CreatedAt = now
	cp.UpdatedAt = now
	t.st.orders[order.ID] = cp
	t.st.orderNumbers[order.OrderNumber] = order.ID
	order.CreatedAt = now
	order.UpdatedAt = now
	return nil
}

func (t *memoryTx) UpdateOrderStatus(_ context.Context, orderID uuid.UUID, status domain.OrderStatus, payment domain.PaymentStatus) error {
	o, ok := t.st.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	o.PaymentStatus = payment
	o.UpdatedAt = time.Now()
	return nil
}

func (t *memoryTx) ReserveStock(_ context.Context, productID int64, qty int) error {
	p, ok := t.st.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	if p.Stock < qty {
		return &domain.InsufficientStockError{
			ProductID: productID,
			Requested: qty,
			Available: p.Stock,
		}
	}
	p.Stock -= qty
	return nil
}

func (t *memoryTx) ReleaseStock(_ context.Context, productID int64, qty int) error {
	p, ok := t.st.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock += qty
	return nil
}

func (t *memoryTx) cartByID(cartID uuid.UUID) *domain.Cart {
	for _, cart := range t.st.carts {
		if cart.ID == cartID {
			return cart
		}
	}
	return nil
}

func (st memoryState) clone() memoryState {
	cp := memoryState{
		products:     make(map[int64]*domain.Product, len(st.products)),
		carts:        make(map[string]*domain.Cart, len(st.carts)),
		addresses:    make(map[uuid.UUID]*domain.Address, len(st.addresses)),
		orders:       make(map[uuid.UUID]*domain.Order, len(st.orders)),
		orderNumbers: make(map[string]uuid.UUID, len(st.orderNumbers)),
	}
	for id, p := range st.products {
		pc := *p
		cp.products[id] = &pc
	}
	for userID, cart := range st.carts {
		cp.carts[userID] = copyCart(cart)
	}
	for id, a := range st.addresses {
		ac := *a
		cp.addresses[id] = &ac
	}
	for id, o := range st.orders {
		cp.orders[id] = copyOrder(o)
	}
	for num, id := range st.orderNumbers {
		cp.orderNumbers[num] = id
	}
	return cp
}

func copyCart(cart *domain.Cart) *domain.Cart {
	cp := *cart
	cp.Lines = append([]domain.CartLine(nil), cart.Lines...)
	return &cp
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return &cp
}
