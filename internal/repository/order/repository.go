package order

import (
	"context"

	"storefront/internal/domain"
)

// LineRequest is a line the shopper asked for. Price, SKU and name are taken
// from the catalog at placement time.
type LineRequest struct {
	ProductID string
	Variant   domain.Variant
	Quantity  int
}

// PlaceInput is an order ready to be written. Lines, Pricing and ID on Order
// are filled in by the repository.
type PlaceInput struct {
	Order domain.Order
	Lines []LineRequest
}

// Pricer computes order totals from catalog-priced lines.
type Pricer func(lines []domain.CartLine) domain.Pricing

type Repository interface {
	// Place reserves stock for every line and stores the order atomically.
	// Insufficient stock yields domain.ErrStockConflict and writes nothing.
	Place(ctx context.Context, in PlaceInput, price Pricer) (*domain.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
}
