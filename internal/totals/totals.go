// Package totals derives order pricing from cart lines.
package totals

import (
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// TaxRate is applied uniformly to the subtotal regardless of region.
var TaxRate = decimal.RequireFromString("0.05")

// DefaultShippingFee is used when no fee is configured.
var DefaultShippingFee = decimal.NewFromInt(50)

// Rates holds the configurable part of the rate table.
type Rates struct {
	ShippingFee decimal.Decimal
}

// DefaultRates returns the rate table with the default shipping fee.
func DefaultRates() Rates {
	return Rates{ShippingFee: DefaultShippingFee}
}

// Calculate returns subtotal, tax, shipping and total for lines.
func Calculate(lines []domain.CartLine, rates Rates) domain.Pricing {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	return FromSubtotal(subtotal, rates)
}

// FromSubtotal applies the rate table to an already computed subtotal.
func FromSubtotal(subtotal decimal.Decimal, rates Rates) domain.Pricing {
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(TaxRate).Round(2)
	shipping := decimal.Zero
	if subtotal.IsPositive() {
		shipping = rates.ShippingFee.Round(2)
	}
	return domain.Pricing{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}
