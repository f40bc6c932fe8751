package cart

import (
	"context"

	"storefront/internal/domain"
)

// Repository persists session-owned carts. Lines are keyed by product and
// variant; variant comparison ignores case.
type Repository interface {
	GetOrCreate(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddLine(ctx context.Context, cartID string, product domain.Product, variant domain.Variant, quantity int) error
	SetLineQuantity(ctx context.Context, cartID, productID string, variant domain.Variant, quantity int) error
	RemoveLine(ctx context.Context, cartID, productID string, variant domain.Variant) error
	ClearLines(ctx context.Context, cartID string) error
}
