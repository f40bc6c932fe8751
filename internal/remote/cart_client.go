package remote

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/domain"
)

// CartClient talks to the cart service.
type CartClient struct {
	base baseClient
}

func NewCartClient(baseURL string, httpClient *http.Client, timeout time.Duration, log logrus.FieldLogger) *CartClient {
	return &CartClient{base: newBaseClient(baseURL, httpClient, timeout, log)}
}

// ForSession binds the client to one shopper's session token.
func (c *CartClient) ForSession(token string) *SessionCart {
	return &SessionCart{base: c.base, token: token}
}

type addRequest struct {
	ProductID string         `json:"productId"`
	Quantity  int            `json:"quantity"`
	Variant   domain.Variant `json:"variant"`
}

// SessionCart is the cart of a single session on the remote service.
type SessionCart struct {
	base  baseClient
	token string
}

func (s *SessionCart) Get(ctx context.Context) (domain.Cart, error) {
	return s.call(ctx, http.MethodGet, "/cart", nil)
}

func (s *SessionCart) Add(ctx context.Context, productID string, variant domain.Variant, qty int) (domain.Cart, error) {
	return s.call(ctx, http.MethodPost, "/cart/add", addRequest{ProductID: productID, Quantity: qty, Variant: variant})
}

func (s *SessionCart) Update(ctx context.Context, productID string, variant domain.Variant, qty int) (domain.Cart, error) {
	return s.call(ctx, http.MethodPut, "/cart/update", addRequest{ProductID: productID, Quantity: qty, Variant: variant})
}

func (s *SessionCart) Remove(ctx context.Context, productID string, variant domain.Variant) (domain.Cart, error) {
	q := url.Values{}
	if variant.Size != "" {
		q.Set("size", variant.Size)
	}
	if variant.Color != "" {
		q.Set("color", variant.Color)
	}
	path := "/cart/remove/" + url.PathEscape(productID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return s.call(ctx, http.MethodDelete, path, nil)
}

func (s *SessionCart) Clear(ctx context.Context) (domain.Cart, error) {
	return s.call(ctx, http.MethodDelete, "/cart/clear", nil)
}

func (s *SessionCart) call(ctx context.Context, method, path string, body interface{}) (domain.Cart, error) {
	var cart domain.Cart
	if err := s.base.do(ctx, method, path, s.token, body, &cart); err != nil {
		return domain.Cart{}, err
	}
	cart.Recompute()
	return cart, nil
}
