package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is owned by the catalog; this subsystem reads it and mutates
// only its stock count through the reserve/release statements.
type Product struct {
	ID        int64           `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
