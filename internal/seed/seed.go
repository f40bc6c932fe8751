package seed

import (
	"context"
	"fmt"

	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type productSeed struct {
	Key         string
	SKU         string
	Name        string
	Description string
	PriceCents  int64
	Stock       int
	Sizes       []string
	Colors      []string
}

var demoProducts = []productSeed{
	{
		Key:         "linen-shirt",
		SKU:         "SKU-LINEN-SHIRT",
		Name:        "Linen Shirt",
		Description: "Breathable linen shirt",
		PriceCents:  100000,
		Stock:       25,
		Sizes:       []string{"S", "M", "L", "XL"},
		Colors:      []string{"White", "Sand"},
	},
	{
		Key:         "canvas-cap",
		SKU:         "SKU-CANVAS-CAP",
		Name:        "Canvas Cap",
		Description: "Washed canvas cap",
		PriceCents:  20000,
		Stock:       40,
		Colors:      []string{"Olive", "Navy"},
	},
	{
		Key:         "enamel-mug",
		SKU:         "SKU-ENAMEL-MUG",
		Name:        "Enamel Mug",
		Description: "Camp mug, 350 ml",
		PriceCents:  1999,
		Stock:       3,
	},
}

// Apply upserts demo products for manual testing. It is idempotent.
func Apply(ctx context.Context, repo ProductWriter, currency string) (int, error) {
	for _, p := range demoProducts {
		attrs := map[string]interface{}{}
		if len(p.Sizes) > 0 {
			attrs["sizes"] = p.Sizes
		}
		if len(p.Colors) > 0 {
			attrs["colors"] = p.Colors
		}
		_, err := repo.Upsert(ctx, domain.Product{
			Key:         p.Key,
			SKU:         p.SKU,
			Name:        p.Name,
			Description: p.Description,
			PriceCents:  p.PriceCents,
			Currency:    currency,
			Stock:       p.Stock,
			Attributes:  attrs,
		})
		if err != nil {
			return 0, fmt.Errorf("upsert product %s: %w", p.Key, err)
		}
	}
	return len(demoProducts), nil
}
