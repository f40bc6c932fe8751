package remote

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"storefront/internal/domain"
)

// OrderClient submits orders through a circuit breaker so a failing order
// service is not hammered by retrying shoppers.
type OrderClient struct {
	base baseClient
	cb   *gobreaker.CircuitBreaker
}

func NewOrderClient(baseURL string, httpClient *http.Client, timeout time.Duration, log logrus.FieldLogger) *OrderClient {
	base := newBaseClient(baseURL, httpClient, timeout, log)
	st := gobreaker.Settings{
		Name:        "OrderService",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isRejection(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			base.log.Warnf("CircuitBreaker[%s] state changed from %s to %s", name, from, to)
		},
	}
	return &OrderClient{base: base, cb: gobreaker.NewCircuitBreaker(st)}
}

// Create posts the draft. A 409 response wraps domain.ErrStockConflict and a
// 400/422 response wraps domain.ErrInvalidOrder.
func (c *OrderClient) Create(ctx context.Context, token string, draft domain.OrderDraft) (domain.OrderConfirmation, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		var conf domain.OrderConfirmation
		if err := c.base.do(ctx, http.MethodPost, "/orders", token, draft, &conf); err != nil {
			return nil, err
		}
		return conf, nil
	})
	if err != nil {
		return domain.OrderConfirmation{}, err
	}
	return res.(domain.OrderConfirmation), nil
}

// ForSession binds the client to one shopper's session token.
func (c *OrderClient) ForSession(token string) *SessionOrders {
	return &SessionOrders{client: c, token: token}
}

// SessionOrders places orders on behalf of a single session.
type SessionOrders struct {
	client *OrderClient
	token  string
}

func (s *SessionOrders) Create(ctx context.Context, draft domain.OrderDraft) (domain.OrderConfirmation, error) {
	return s.client.Create(ctx, s.token, draft)
}

// State exposes the breaker state for readiness reporting.
func (c *OrderClient) State() gobreaker.State {
	return c.cb.State()
}

func isRejection(err error) bool {
	return errors.Is(err, domain.ErrStockConflict) || errors.Is(err, domain.ErrInvalidOrder)
}

func statusSentinel(code int) error {
	switch code {
	case http.StatusConflict:
		return domain.ErrStockConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrInvalidOrder
	case http.StatusNotFound:
		return domain.ErrNotFound
	default:
		return nil
	}
}
