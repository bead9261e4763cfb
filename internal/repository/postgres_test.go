package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/CerenTurker/E-Commerce-API/internal/domain"
)

func setupTestDB(t *testing.T) (*PostgresStore, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "../../migrations",
	}

	store, err := NewPostgresStore(creds, zap.NewNop())
	require.NoError(t, err)

	err = store.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		store.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return store, cleanup
}

func insertProduct(t *testing.T, store *PostgresStore, id int64, price string, stock int) {
	t.Helper()
	_, err := store.db.ExecContext(context.Background(),
		`INSERT INTO products (id, sku, name, price, stock) VALUES ($1, $2, $3, $4, $5)`,
		id, uuid.NewString(), "product", price, stock)
	require.NoError(t, err)
}

func insertAddress(t *testing.T, store *PostgresStore, userID string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := store.db.ExecContext(context.Background(),
		`INSERT INTO addresses (id, user_id, recipient, line1, city, postal_code, country)
		 VALUES ($1, $2, 'Jean Doe', '1 Main St', 'Springfield', '12345', 'US')`,
		id, userID)
	require.NoError(t, err)
	return id
}

func newStoredOrder(userID string) *domain.Order {
	orderID := uuid.New()
	return &domain.Order{
		ID:              orderID,
		OrderNumber:     "ORD-" + uuid.NewString()[:13],
		UserID:          userID,
		ShippingAddress: "Jean Doe, 1 Main St, Springfield, 12345, US",
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusUnpaid,
		PaymentMethod:   "card",
		Subtotal:        decimal.RequireFromString("60.00"),
		Tax:             decimal.RequireFromString("6.00"),
		Shipping:        decimal.RequireFromString("10.00"),
		Total:           decimal.RequireFromString("76.00"),
		Lines: []domain.OrderLine{
			{
				ID:        uuid.New(),
				OrderID:   orderID,
				ProductID: 1,
				Quantity:  3,
				UnitPrice: decimal.RequireFromString("20.00"),
				Subtotal:  decimal.RequireFromString("60.00"),
			},
		},
	}
}

func TestPostgres_CreateAndGetOrder(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertProduct(t, store, 1, "20.00", 5)
	order := newStoredOrder("user-123")

	err := store.WithinTx(ctx, func(tx Tx) error {
		return tx.CreateOrder(ctx, order)
	})
	require.NoError(t, err)

	fetched, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, fetched.OrderNumber)
	assert.Equal(t, order.UserID, fetched.UserID)
	assert.Equal(t, domain.OrderStatusPending, fetched.Status)
	assert.True(t, order.Total.Equal(fetched.Total))
	require.Len(t, fetched.Lines, 1)
	assert.True(t, order.Lines[0].UnitPrice.Equal(fetched.Lines[0].UnitPrice))
}

func TestPostgres_DuplicateOrderNumber(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	first := newStoredOrder("user-123")
	require.NoError(t, store.WithinTx(ctx, func(tx Tx) error {
		return tx.CreateOrder(ctx, first)
	}))

	second := newStoredOrder("user-123")
	second.OrderNumber = first.OrderNumber
	err := store.WithinTx(ctx, func(tx Tx) error {
		return tx.CreateOrder(ctx, second)
	})
	assert.ErrorIs(t, err, ErrDuplicateOrderNumber)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestPostgres_GetOrder_NotFound(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := store.GetOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPostgres_ReserveStock(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertProduct(t, store, 1, "20.00", 5)

	require.NoError(t, store.WithinTx(ctx, func(tx Tx) error {
		return tx.ReserveStock(ctx, 1, 3)
	}))

	p, err := store.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)

	err = store.WithinTx(ctx, func(tx Tx) error {
		return tx.ReserveStock(ctx, 1, 3)
	})
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(1), stockErr.ProductID)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	// the failed reservation changed nothing
	p, err = store.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)
}

func TestPostgres_ReleaseStock(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertProduct(t, store, 1, "20.00", 2)

	require.NoError(t, store.WithinTx(ctx, func(tx Tx) error {
		return tx.ReleaseStock(ctx, 1, 3)
	}))

	p, err := store.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

func TestPostgres_TxRollbackOnError(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertProduct(t, store, 1, "20.00", 10)
	order := newStoredOrder("user-123")

	err := store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.ReserveStock(ctx, 1, 4); err != nil {
			return err
		}
		// product 2 does not exist, the whole transaction unwinds
		return tx.ReserveStock(ctx, 2, 1)
	})
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = store.GetOrder(ctx, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	p, err := store.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)
}

func TestPostgres_CartRoundTrip(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertProduct(t, store, 1, "19.99", 10)

	var cartID uuid.UUID
	err := store.WithinTx(ctx, func(tx Tx) error {
		cart, err := tx.EnsureCart(ctx, "user-cart")
		if err != nil {
			return err
		}
		cartID = cart.ID
		return tx.UpsertCartLine(ctx, &domain.CartLine{
			ID:        uuid.New(),
			CartID:    cart.ID,
			ProductID: 1,
			Quantity:  2,
			AddedAt:   time.Now(),
		})
	})
	require.NoError(t, err)

	// EnsureCart is idempotent per user
	err = store.WithinTx(ctx, func(tx Tx) error {
		cart, err := tx.EnsureCart(ctx, "user-cart")
		if err != nil {
			return err
		}
		assert.Equal(t, cartID, cart.ID)
		return nil
	})
	require.NoError(t, err)

	cart, err := store.GetCart(ctx, "user-cart")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)

	// upsert replaces the quantity for the same product
	line := cart.Lines[0]
	line.Quantity = 5
	require.NoError(t, store.WithinTx(ctx, func(tx Tx) error {
		return tx.UpsertCartLine(ctx, &line)
	}))
	cart, err = store.GetCart(ctx, "user-cart")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)

	require.NoError(t, store.WithinTx(ctx, func(tx Tx) error {
		return tx.ClearCart(ctx, cartID)
	}))
	cart, err = store.GetCart(ctx, "user-cart")
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
}

func TestPostgres_GetAddress(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	addrID := insertAddress(t, store, "user-addr")

	addr, err := store.GetAddress(ctx, addrID)
	require.NoError(t, err)
	assert.Equal(t, "user-addr", addr.UserID)
	assert.Equal(t, "Jean Doe, 1 Main St, Springfield, 12345, US", addr.Snapshot())

	_, err = store.GetAddress(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestPostgres_UpdateOrderStatus(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newStoredOrder("user-123")
	require.NoError(t, store.WithinTx(ctx, func(tx Tx) error {
		return tx.CreateOrder(ctx, order)
	}))

	require.NoError(t, store.WithinTx(ctx, func(tx Tx) error {
		return tx.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusConfirmed, domain.PaymentStatusPaid)
	}))

	fetched, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, fetched.Status)
	assert.Equal(t, domain.PaymentStatusPaid, fetched.PaymentStatus)

	err = store.WithinTx(ctx, func(tx Tx) error {
		return tx.UpdateOrderStatus(ctx, uuid.New(), domain.OrderStatusConfirmed, domain.PaymentStatusPaid)
	})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPostgres_ListOrdersByUser(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := "user-list-test"

	first := newStoredOrder(userID)
	require.NoError(t, store.WithinTx(ctx, func(tx Tx) error {
		return tx.CreateOrder(ctx, first)
	}))

	// Small sleep to ensure different created_at timestamps
	time.Sleep(10 * time.Millisecond)

	second := newStoredOrder(userID)
	require.NoError(t, store.WithinTx(ctx, func(tx Tx) error {
		return tx.CreateOrder(ctx, second)
	}))

	orders, err := store.ListOrdersByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
}
