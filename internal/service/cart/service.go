package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
)

var ErrInvalidInput = errors.New("invalid cart input")

type Service struct {
	repo        cartRepo
	productRepo productRepo
}

type cartRepo interface {
	GetOrCreate(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddLine(ctx context.Context, cartID string, product domain.Product, variant domain.Variant, quantity int) error
	SetLineQuantity(ctx context.Context, cartID, productID string, variant domain.Variant, quantity int) error
	RemoveLine(ctx context.Context, cartID, productID string, variant domain.Variant) error
	ClearLines(ctx context.Context, cartID string) error
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(repo cartrepo.Repository, productRepo productRepo) *Service {
	return &Service{repo: repo, productRepo: productRepo}
}

// LineInput identifies a product and variant in the session's cart.
type LineInput struct {
	ProductID string         `json:"productId"`
	Quantity  int            `json:"quantity"`
	Variant   domain.Variant `json:"variant"`
}

func (in LineInput) normalized() LineInput {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.Variant.Size = strings.TrimSpace(in.Variant.Size)
	in.Variant.Color = strings.TrimSpace(in.Variant.Color)
	return in
}

func (s *Service) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return s.repo.GetOrCreate(ctx, sessionID)
}

// Add merges into the line with the same product and variant, or creates one
// priced from the catalog.
func (s *Service) Add(ctx context.Context, sessionID string, in LineInput) (*domain.Cart, error) {
	in = in.normalized()
	if in.ProductID == "" {
		return nil, fmt.Errorf("%w: productId required", ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if s.productRepo == nil {
		return nil, errors.New("product repository unavailable")
	}
	product, err := s.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	cart, err := s.repo.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddLine(ctx, cart.ID, *product, in.Variant, in.Quantity); err != nil {
		return nil, err
	}
	return s.repo.GetOrCreate(ctx, sessionID)
}

func (s *Service) Update(ctx context.Context, sessionID string, in LineInput) (*domain.Cart, error) {
	in = in.normalized()
	if in.ProductID == "" {
		return nil, fmt.Errorf("%w: productId required", ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	cart, err := s.repo.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetLineQuantity(ctx, cart.ID, in.ProductID, in.Variant, in.Quantity); err != nil {
		return nil, err
	}
	return s.repo.GetOrCreate(ctx, sessionID)
}

// Remove deletes the line for productID and variant. Removing a line that is
// not in the cart succeeds.
func (s *Service) Remove(ctx context.Context, sessionID, productID string, variant domain.Variant) (*domain.Cart, error) {
	in := LineInput{ProductID: productID, Variant: variant}.normalized()
	if in.ProductID == "" {
		return nil, fmt.Errorf("%w: productId required", ErrInvalidInput)
	}
	cart, err := s.repo.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveLine(ctx, cart.ID, in.ProductID, in.Variant); err != nil {
		return nil, err
	}
	return s.repo.GetOrCreate(ctx, sessionID)
}

func (s *Service) Clear(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.repo.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ClearLines(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.repo.GetOrCreate(ctx, sessionID)
}
