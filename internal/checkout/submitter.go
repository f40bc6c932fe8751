// Package checkout validates checkout forms and turns the current cart into
// an order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/domain"
	"storefront/internal/totals"
)

var (
	ErrInvalidForm      = errors.New("checkout form is invalid")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrSubmitInProgress = errors.New("order submission already in progress")
	// ErrOrderRejected means the order service refused the order, for example
	// because of a stock conflict. Retrying unchanged will fail again.
	ErrOrderRejected = errors.New("order rejected")
	// ErrOrderFailed means the order service could not be reached or failed.
	ErrOrderFailed = errors.New("order submission failed")
)

type State string

const (
	StateForm       State = "FORM"
	StateSubmitting State = "SUBMITTING"
	StateSuccess    State = "SUCCESS"
)

// Cart is the part of the cart store the submitter needs.
type Cart interface {
	// Load returns the current cart, reading it from its source if the cart
	// has not been read yet.
	Load(ctx context.Context) (domain.Cart, error)
	ClearForOrder(ctx context.Context) (domain.Cart, error)
}

// Orders creates orders on the order service.
type Orders interface {
	Create(ctx context.Context, draft domain.OrderDraft) (domain.OrderConfirmation, error)
}

type Result struct {
	State      State      `json:"state"`
	Validation Validation `json:"validation"`
	Receipt    *Receipt   `json:"receipt,omitempty"`
}

type Submitter struct {
	cart   Cart
	orders Orders
	rates  totals.Rates
	log    logrus.FieldLogger
	now    func() time.Time

	mu    sync.Mutex
	state State
}

func NewSubmitter(cart Cart, orders Orders, rates totals.Rates, log logrus.FieldLogger) *Submitter {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Submitter{
		cart:   cart,
		orders: orders,
		rates:  rates,
		log:    log,
		now:    time.Now,
		state:  StateForm,
	}
}

// State returns the current checkout step.
func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Submitter) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Submit validates the form, places the order and clears the cart. On any
// failure the submitter returns to the form step and the cart is untouched.
func (s *Submitter) Submit(ctx context.Context, form Form) (Result, error) {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return Result{State: StateSubmitting}, ErrSubmitInProgress
	}
	// The guard spans the whole attempt, validation and cart read included.
	s.state = StateSubmitting
	s.mu.Unlock()

	form = form.normalized()
	v := Validate(form)
	if !v.Valid {
		s.setState(StateForm)
		return Result{State: StateForm, Validation: v}, ErrInvalidForm
	}

	snap, err := s.cart.Load(ctx)
	if err != nil {
		s.setState(StateForm)
		return Result{State: StateForm, Validation: v}, err
	}
	if len(snap.Lines) == 0 {
		s.setState(StateForm)
		return Result{State: StateForm, Validation: v}, ErrEmptyCart
	}
	draft := s.draft(form, snap)

	conf, err := s.orders.Create(ctx, draft)
	if err != nil {
		s.setState(StateForm)
		entry := s.log.WithError(err).WithField("lines", len(draft.Lines))
		if errors.Is(err, domain.ErrStockConflict) || errors.Is(err, domain.ErrInvalidOrder) {
			entry.Info("order rejected")
			return Result{State: StateForm, Validation: v}, fmt.Errorf("%w: %w", ErrOrderRejected, err)
		}
		entry.Warn("order submission failed")
		return Result{State: StateForm, Validation: v}, fmt.Errorf("%w: %w", ErrOrderFailed, err)
	}

	if _, err := s.cart.ClearForOrder(ctx); err != nil {
		s.log.WithError(err).WithField("order_number", conf.OrderNumber).Error("clear cart after order")
	}
	s.setState(StateSuccess)
	s.log.WithFields(logrus.Fields{
		"order_number": conf.OrderNumber,
		"total":        draft.Pricing.Total.StringFixed(2),
	}).Info("order placed")

	receipt := newReceipt(conf, draft, s.now())
	return Result{State: StateSuccess, Validation: v, Receipt: &receipt}, nil
}

func (s *Submitter) draft(form Form, snap domain.Cart) domain.OrderDraft {
	lines := make([]domain.CartLine, len(snap.Lines))
	copy(lines, snap.Lines)
	method := form.PaymentMethod
	if method == "" {
		method = "bank_transfer"
	}
	return domain.OrderDraft{
		ShippingAddress:      form.address(),
		PaymentMethod:        method,
		TransactionReference: form.TransactionReference,
		Notes:                form.Notes,
		Lines:                lines,
		Pricing:              totals.Calculate(lines, s.rates),
		PaymentProof:         form.PaymentProof,
	}
}
