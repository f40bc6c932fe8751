package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/totals"
)

type stubCart struct {
	mu       sync.Mutex
	cart     domain.Cart
	clears   int
	clearErr error
	loadErr  error
	// When set, the first Load signals loading and waits for release.
	loading chan struct{}
	release chan struct{}
	loads   int
}

func (c *stubCart) Load(context.Context) (domain.Cart, error) {
	c.mu.Lock()
	c.loads++
	first := c.loads == 1
	c.mu.Unlock()
	if first && c.loading != nil {
		close(c.loading)
		<-c.release
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return domain.Cart{}, c.loadErr
	}
	return c.cart.Clone(), nil
}

func (c *stubCart) Snapshot() domain.Cart {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.Clone()
}

func (c *stubCart) ClearForOrder(context.Context) (domain.Cart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clears++
	if c.clearErr != nil {
		return c.cart.Clone(), c.clearErr
	}
	c.cart = domain.NewCart(nil)
	return c.cart.Clone(), nil
}

type stubOrders struct {
	calls     int
	lastDraft domain.OrderDraft
	conf      domain.OrderConfirmation
	err       error
	block     chan struct{}
	entered   chan struct{}
}

func (o *stubOrders) Create(ctx context.Context, draft domain.OrderDraft) (domain.OrderConfirmation, error) {
	o.calls++
	o.lastDraft = draft
	if o.entered != nil {
		close(o.entered)
	}
	if o.block != nil {
		<-o.block
	}
	return o.conf, o.err
}

func validForm() Form {
	return Form{
		Name:                 "Ada Lovelace",
		Email:                "ada@example.com",
		Phone:                "+251 911 234567",
		Address:              "12 Analytical Way",
		City:                 "Addis Ababa",
		Zip:                  "1000",
		PaymentMethod:        "bank_transfer",
		TransactionReference: "TX-2231",
		PaymentProof: &domain.PaymentProof{
			Filename:    "receipt.png",
			ContentType: "image/png",
			Data:        []byte("png-bytes"),
		},
	}
}

func cartWithLines() *stubCart {
	return &stubCart{cart: domain.NewCart([]domain.CartLine{
		{ID: "l1", ProductID: "P1", Name: "Shirt", UnitPrice: decimal.NewFromInt(1000), Quantity: 3},
		{ID: "l2", ProductID: "P2", Name: "Cap", UnitPrice: decimal.NewFromInt(200), Quantity: 1},
	})}
}

func TestValidateAcceptsCompleteForm(t *testing.T) {
	v := Validate(validForm())
	assert.True(t, v.Valid)
	assert.Empty(t, v.Errors)
}

func TestValidateReportsFieldErrors(t *testing.T) {
	f := validForm()
	f.Email = "   "
	f.Phone = "call me"
	f.Zip = "!"
	f.PaymentProof = nil

	v := Validate(f)
	require.False(t, v.Valid)
	assert.Equal(t, "email is required", v.Errors["email"])
	assert.Equal(t, "enter a valid phone number", v.Errors["phone"])
	assert.Equal(t, "enter a valid postal code", v.Errors["zip"])
	assert.Equal(t, "payment proof attachment is required", v.Errors["paymentProof"])
	assert.NotContains(t, v.Errors, "name")
}

func TestValidateRejectsProofType(t *testing.T) {
	f := validForm()
	f.PaymentProof.ContentType = "text/plain"
	v := Validate(f)
	require.False(t, v.Valid)
	assert.Contains(t, v.Errors, "paymentProof")

	f = validForm()
	f.PaymentProof.Data = make([]byte, MaxProofBytes+1)
	assert.False(t, Validate(f).Valid)
}

func TestSubmitInvalidFormMakesNoCall(t *testing.T) {
	cart := cartWithLines()
	orders := &stubOrders{}
	s := NewSubmitter(cart, orders, totals.DefaultRates(), nil)

	f := validForm()
	f.Email = ""
	res, err := s.Submit(context.Background(), f)

	assert.ErrorIs(t, err, ErrInvalidForm)
	assert.Equal(t, StateForm, res.State)
	assert.Contains(t, res.Validation.Errors, "email")
	assert.Zero(t, orders.calls)
	assert.Len(t, cart.Snapshot().Lines, 2)
}

func TestSubmitEmptyCart(t *testing.T) {
	orders := &stubOrders{}
	s := NewSubmitter(&stubCart{cart: domain.NewCart(nil)}, orders, totals.DefaultRates(), nil)

	res, err := s.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, StateForm, res.State)
	assert.Zero(t, orders.calls)
}

func TestSubmitSuccessClearsCartOnce(t *testing.T) {
	cart := cartWithLines()
	created := time.Date(2026, 3, 10, 15, 4, 0, 0, time.UTC)
	orders := &stubOrders{conf: domain.OrderConfirmation{
		OrderNumber:    "ORD-20260310-AB12CD34",
		CreatedAt:      created,
		PaymentStatus:  "pending",
		TrackingNumber: "TRK-1",
	}}
	s := NewSubmitter(cart, orders, totals.DefaultRates(), nil)

	res, err := s.Submit(context.Background(), validForm())
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, res.State)
	assert.Equal(t, StateSuccess, s.State())
	assert.Equal(t, 1, cart.clears)
	assert.Empty(t, cart.Snapshot().Lines)

	require.NotNil(t, res.Receipt)
	assert.Equal(t, "ORD-20260310-AB12CD34", res.Receipt.OrderNumber)
	assert.Equal(t, time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC), res.Receipt.EstimatedDeliveryFrom)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), res.Receipt.EstimatedDeliveryTo)
	assert.Len(t, res.Receipt.Lines, 2)

	draft := orders.lastDraft
	assert.Equal(t, "ada@example.com", draft.ShippingAddress.Email)
	assert.True(t, draft.Pricing.Subtotal.Equal(decimal.NewFromInt(3200)))
	assert.True(t, draft.Pricing.Tax.Equal(decimal.NewFromInt(160)))
	assert.True(t, draft.Pricing.Shipping.Equal(decimal.NewFromInt(50)))
	assert.True(t, draft.Pricing.Total.Equal(decimal.NewFromInt(3410)))
	require.NotNil(t, draft.PaymentProof)
	assert.Equal(t, "receipt.png", draft.PaymentProof.Filename)
}

func TestSubmitRejectedKeepsCart(t *testing.T) {
	cart := cartWithLines()
	orders := &stubOrders{err: domain.ErrStockConflict}
	s := NewSubmitter(cart, orders, totals.DefaultRates(), nil)

	res, err := s.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, ErrOrderRejected)
	assert.ErrorIs(t, err, domain.ErrStockConflict)
	assert.Equal(t, StateForm, res.State)
	assert.Nil(t, res.Receipt)
	assert.Zero(t, cart.clears)
	assert.Len(t, cart.Snapshot().Lines, 2)
}

func TestSubmitTransportFailure(t *testing.T) {
	cart := cartWithLines()
	orders := &stubOrders{err: errors.New("dial tcp: connection refused")}
	s := NewSubmitter(cart, orders, totals.DefaultRates(), nil)

	_, err := s.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, ErrOrderFailed)
	assert.NotErrorIs(t, err, ErrOrderRejected)
	assert.Equal(t, StateForm, s.State())
	assert.Zero(t, cart.clears)
}

func TestSubmitClearFailureStillSucceeds(t *testing.T) {
	cart := cartWithLines()
	cart.clearErr = errors.New("disk full")
	orders := &stubOrders{conf: domain.OrderConfirmation{OrderNumber: "ORD-1"}}
	s := NewSubmitter(cart, orders, totals.DefaultRates(), nil)

	res, err := s.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, res.State)
	assert.Equal(t, 1, cart.clears)
}

func TestSubmitWhileSubmitting(t *testing.T) {
	cart := cartWithLines()
	orders := &stubOrders{
		conf:    domain.OrderConfirmation{OrderNumber: "ORD-2"},
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	s := NewSubmitter(cart, orders, totals.DefaultRates(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), validForm())
		done <- err
	}()
	<-orders.entered

	res, err := s.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, ErrSubmitInProgress)
	assert.Equal(t, StateSubmitting, res.State)

	close(orders.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, orders.calls)
	assert.Equal(t, 1, cart.clears)
}

func TestSubmitRefusedWhileFirstIsStillPreparing(t *testing.T) {
	cart := cartWithLines()
	cart.loading = make(chan struct{})
	cart.release = make(chan struct{})
	orders := &stubOrders{conf: domain.OrderConfirmation{OrderNumber: "ORD-3"}}
	s := NewSubmitter(cart, orders, totals.DefaultRates(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), validForm())
		done <- err
	}()
	<-cart.loading

	res, err := s.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, ErrSubmitInProgress)
	assert.Equal(t, StateSubmitting, res.State)

	close(cart.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, orders.calls)
	assert.Equal(t, StateSuccess, s.State())
}

func TestSubmitFailedValidationReleasesGuard(t *testing.T) {
	cart := cartWithLines()
	orders := &stubOrders{conf: domain.OrderConfirmation{OrderNumber: "ORD-4"}}
	s := NewSubmitter(cart, orders, totals.DefaultRates(), nil)

	bad := validForm()
	bad.Email = ""
	_, err := s.Submit(context.Background(), bad)
	require.ErrorIs(t, err, ErrInvalidForm)
	assert.Equal(t, StateForm, s.State())

	_, err = s.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, 1, orders.calls)
}

func TestSubmitCartLoadFailure(t *testing.T) {
	cart := cartWithLines()
	cart.loadErr = errors.New("local storage failed")
	orders := &stubOrders{}
	s := NewSubmitter(cart, orders, totals.DefaultRates(), nil)

	res, err := s.Submit(context.Background(), validForm())
	require.Error(t, err)
	assert.Equal(t, StateForm, res.State)
	assert.Equal(t, StateForm, s.State())
	assert.Zero(t, orders.calls)
}
