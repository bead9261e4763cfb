package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/CerenTurker/E-Commerce-API/internal/domain"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx, so every query below
// serves reads on the pool and the transactional path unchanged.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type querier struct {
	q dbtx
}

// unavailable tags an unexpected driver failure so handlers can offer
// the caller a retry; business errors never go through here.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrUnavailable)
}

func (r querier) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	query := `SELECT id, sku, name, price, stock, active, created_at, updated_at
	          FROM products WHERE id = $1`

	var p domain.Product
	err := r.q.QueryRowContext(ctx, query, productID).Scan(
		&p.ID, &p.SKU, &p.Name, &p.Price, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, unavailable("query product", err)
	}
	return &p, nil
}

func (r querier) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	query := `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`

	var cart domain.Cart
	err := r.q.QueryRowContext(ctx, query, userID).Scan(
		&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, unavailable("query cart", err)
	}

	lines, err := r.cartLines(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Lines = lines
	return &cart, nil
}

func (r querier) cartLines(ctx context.Context, cartID uuid.UUID) ([]domain.CartLine, error) {
	query := `SELECT id, cart_id, product_id, quantity, added_at
	          FROM cart_lines WHERE cart_id = $1 ORDER BY added_at`

	rows, err := r.q.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, unavailable("query cart lines", err)
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ID, &line.CartID, &line.ProductID, &line.Quantity, &line.AddedAt); err != nil {
			return nil, unavailable("scan cart line", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate cart lines", err)
	}
	return lines, nil
}

func (r querier) GetCartLine(ctx context.Context, lineID uuid.UUID) (*domain.CartLine, error) {
	query := `SELECT id, cart_id, product_id, quantity, added_at FROM cart_lines WHERE id = $1`

	var line domain.CartLine
	err := r.q.QueryRowContext(ctx, query, lineID).Scan(
		&line.ID, &line.CartID, &line.ProductID, &line.Quantity, &line.AddedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartLineNotFound
	}
	if err != nil {
		return nil, unavailable("query cart line", err)
	}
	return &line, nil
}

func (r querier) GetAddress(ctx context.Context, addressID uuid.UUID) (*domain.Address, error) {
	query := `SELECT id, user_id, recipient, line1, line2, city, postal_code, country
	          FROM addresses WHERE id = $1`

	var a domain.Address
	err := r.q.QueryRowContext(ctx, query, addressID).Scan(
		&a.ID, &a.UserID, &a.Recipient, &a.Line1, &a.Line2, &a.City, &a.PostalCode, &a.Country,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, unavailable("query address", err)
	}
	return &a, nil
}

const orderColumns = `id, order_number, user_id, shipping_address, status, payment_status,
	payment_method, notes, subtotal, tax, shipping, total, lines, created_at, updated_at`

func (r querier) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.q.QueryRowContext(ctx, query, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, unavailable("query order by id", err)
	}
	return order, nil
}

func (r querier) ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, unavailable("query orders by user id", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, unavailable("scan order row", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate orders", err)
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var linesJSON []byte
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.ShippingAddress,
		&order.Status,
		&order.PaymentStatus,
		&order.PaymentMethod,
		&order.Notes,
		&order.Subtotal,
		&order.Tax,
		&order.Shipping,
		&order.Total,
		&linesJSON,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(linesJSON, &order.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal order lines: %w", err)
	}
	return &order, nil
}

func (r querier) EnsureCart(ctx context.Context, userID string) (*domain.Cart, error) {
	query := `INSERT INTO carts (id, user_id, created_at, updated_at)
	          VALUES ($1, $2, NOW(), NOW())
	          ON CONFLICT (user_id) DO NOTHING`

	if _, err := r.q.ExecContext(ctx, query, uuid.New(), userID); err != nil {
		return nil, unavailable("insert cart", err)
	}
	return r.GetCart(ctx, userID)
}

func (r querier) UpsertCartLine(ctx context.Context, line *domain.CartLine) error {
	query := `INSERT INTO cart_lines (id, cart_id, product_id, quantity, added_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`

	if _, err := r.q.ExecContext(ctx, query, line.ID, line.CartID, line.ProductID, line.Quantity, line.AddedAt); err != nil {
		return unavailable("upsert cart line", err)
	}
	return nil
}

func (r querier) DeleteCartLine(ctx context.Context, lineID uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM cart_lines WHERE id = $1`, lineID)
	if err != nil {
		return unavailable("delete cart line", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable("delete cart line", err)
	}
	if affected == 0 {
		return ErrCartLineNotFound
	}
	return nil
}

func (r querier) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID); err != nil {
		return unavailable("clear cart", err)
	}
	return nil
}

func (r querier) CreateOrder(ctx context.Context, order *domain.Order) error {
	linesJSON, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("marshal order lines: %w", err)
	}

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())`

	_, insertErr := r.q.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		order.UserID,
		order.ShippingAddress,
		order.Status,
		order.PaymentStatus,
		order.PaymentMethod,
		order.Notes,
		order.Subtotal,
		order.Tax,
		order.Shipping,
		order.Total,
		linesJSON)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrderNumber
		}
		return unavailable("insert order", insertErr)
	}
	return nil
}

func (r querier) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, payment domain.PaymentStatus) error {
	query := `UPDATE orders SET status = $2, payment_status = $3, updated_at = NOW() WHERE id = $1`

	res, err := r.q.ExecContext(ctx, query, orderID, status, payment)
	if err != nil {
		return unavailable("update order status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable("update order status", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ReserveStock is the single conditional update the whole stock
// invariant rests on: the row only changes when enough stock remains,
// so the database serializes racing reservations on the product row.
func (r querier) ReserveStock(ctx context.Context, productID int64, qty int) error {
	query := `UPDATE products SET stock = stock - $2, updated_at = NOW()
	          WHERE id = $1 AND stock >= $2`

	res, err := r.q.ExecContext(ctx, query, productID, qty)
	if err != nil {
		return unavailable("reserve stock", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable("reserve stock", err)
	}
	if affected == 1 {
		return nil
	}

	// Nothing changed: either the product is gone or stock ran short.
	product, err := r.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	return &domain.InsufficientStockError{
		ProductID: productID,
		Requested: qty,
		Available: product.Stock,
	}
}

func (r querier) ReleaseStock(ctx context.Context, productID int64, qty int) error {
	query := `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`

	res, err := r.q.ExecContext(ctx, query, productID, qty)
	if err != nil {
		return unavailable("release stock", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable("release stock", err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}
