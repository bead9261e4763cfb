// Package pricing computes order totals. It is pure: no storage access,
// no clock, identical input always yields identical output.
package pricing

import "github.com/shopspring/decimal"

var (
	taxRate               = decimal.RequireFromString("0.10")
	freeShippingThreshold = decimal.NewFromInt(100)
	flatShippingFee       = decimal.NewFromInt(10)
)

// Line is one priced cart or order position.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Quote holds the derived monetary values, each rounded to two decimal
// places so rounding error never compounds across terms.
type Quote struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Price quotes the given lines: subtotal is the sum of unit price times
// quantity, tax is 10% of the subtotal, shipping is a flat fee waived
// above the free-shipping threshold.
func Price(lines []Line) Quote {
	subtotal := Subtotal(lines)
	tax := subtotal.Mul(taxRate).Round(2)

	shipping := flatShippingFee
	if subtotal.GreaterThan(freeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Quote{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping).Round(2),
	}
}

// Subtotal sums the lines without tax or shipping. The cart summary uses
// it on live catalog prices.
func Subtotal(lines []Line) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return subtotal.Round(2)
}
