package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the per-user mutable collection of lines. It is created lazily
// on first mutation and emptied, never deleted, by a successful checkout.
type Cart struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"`
	Lines     []CartLine `json:"lines"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartLine is owned exclusively by its cart; at most one line per
// (cart, product) pair.
type CartLine struct {
	ID        uuid.UUID `json:"id"`
	CartID    uuid.UUID `json:"cart_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// FindLine returns the line for the given product, or nil.
func (c *Cart) FindLine(productID int64) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// CartSummary is derived on read from live catalog prices; carts never
// freeze prices, only orders do.
type CartSummary struct {
	ItemCount     int             `json:"item_count"`
	TotalQuantity int             `json:"total_quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}
