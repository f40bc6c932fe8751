// Package order places orders: it validates the draft, reserves stock and
// stores the payment proof.
package order

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/domain"
	"storefront/internal/proofstore"
	orderrepo "storefront/internal/repository/order"
	"storefront/internal/totals"
)

const PaymentStatusPending = "pending"

type orderRepo interface {
	Place(ctx context.Context, in orderrepo.PlaceInput, price orderrepo.Pricer) (*domain.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
}

type Service struct {
	repo   orderRepo
	proofs proofstore.Store
	rates  totals.Rates
	logger logrus.FieldLogger
	now    func() time.Time
}

func New(repo orderrepo.Repository, proofs proofstore.Store, rates totals.Rates, logger logrus.FieldLogger) *Service {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Service{repo: repo, proofs: proofs, rates: rates, logger: logger, now: time.Now}
}

// Create validates and places an order for the session. Prices are taken
// from the catalog, never from the draft.
func (s *Service) Create(ctx context.Context, sessionID string, draft domain.OrderDraft) (*domain.Order, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	lines := make([]orderrepo.LineRequest, 0, len(draft.Lines))
	for _, l := range draft.Lines {
		lines = append(lines, orderrepo.LineRequest{
			ProductID: strings.TrimSpace(l.ProductID),
			Variant:   l.Variant,
			Quantity:  l.Quantity,
		})
	}

	price := func(ls []domain.CartLine) domain.Pricing {
		return totals.Calculate(ls, s.rates)
	}

	for i := 0; i < 3; i++ {
		number, err := orderNumber(s.now())
		if err != nil {
			return nil, err
		}
		tracking, err := randomCode(10)
		if err != nil {
			return nil, err
		}

		var location string
		if draft.PaymentProof != nil && s.proofs != nil {
			key := proofstore.Key(number, draft.PaymentProof.Filename)
			location, err = s.proofs.Put(ctx, key, draft.PaymentProof.ContentType, draft.PaymentProof.Data)
			if err != nil {
				return nil, fmt.Errorf("store payment proof: %w", err)
			}
		}

		placed, err := s.repo.Place(ctx, orderrepo.PlaceInput{
			Order: domain.Order{
				OrderNumber:          number,
				SessionID:            sessionID,
				ShippingAddress:      trimAddress(draft.ShippingAddress),
				PaymentMethod:        paymentMethod(draft.PaymentMethod),
				TransactionReference: strings.TrimSpace(draft.TransactionReference),
				Notes:                strings.TrimSpace(draft.Notes),
				PaymentStatus:        PaymentStatusPending,
				PaymentProofLocation: location,
				TrackingNumber:       "TRK-" + tracking,
			},
			Lines: lines,
		}, price)
		if errors.Is(err, domain.ErrAlreadyExists) {
			s.logger.Warnf("order service: order number collision number=%s", number)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !placed.Pricing.Total.Equal(draft.Pricing.Total) {
			s.logger.WithFields(logrus.Fields{
				"order_number": placed.OrderNumber,
				"client_total": draft.Pricing.Total.StringFixed(2),
				"total":        placed.Pricing.Total.StringFixed(2),
			}).Info("order repriced from catalog")
		}
		return placed, nil
	}
	return nil, errors.New("order number collision")
}

// Get returns an order placed by the session. Orders of other sessions are
// reported as not found.
func (s *Service) Get(ctx context.Context, sessionID, orderNumber string) (*domain.Order, error) {
	o, err := s.repo.GetByNumber(ctx, strings.TrimSpace(orderNumber))
	if err != nil {
		return nil, err
	}
	if o.SessionID != sessionID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func validateDraft(d domain.OrderDraft) error {
	if len(d.Lines) == 0 {
		return fmt.Errorf("%w: order has no lines", domain.ErrInvalidOrder)
	}
	for _, l := range d.Lines {
		if strings.TrimSpace(l.ProductID) == "" {
			return fmt.Errorf("%w: line without productId", domain.ErrInvalidOrder)
		}
		if l.Quantity < 1 {
			return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidOrder)
		}
	}
	a := d.ShippingAddress
	required := map[string]string{
		"name":    a.Name,
		"email":   a.Email,
		"phone":   a.Phone,
		"address": a.Address,
		"city":    a.City,
	}
	for _, field := range []string{"name", "email", "phone", "address", "city"} {
		if strings.TrimSpace(required[field]) == "" {
			return fmt.Errorf("%w: shipping %s required", domain.ErrInvalidOrder, field)
		}
	}
	if strings.TrimSpace(d.TransactionReference) == "" {
		return fmt.Errorf("%w: transactionReference required", domain.ErrInvalidOrder)
	}
	return nil
}

func trimAddress(a domain.Address) domain.Address {
	return domain.Address{
		Name:    strings.TrimSpace(a.Name),
		Email:   strings.TrimSpace(a.Email),
		Phone:   strings.TrimSpace(a.Phone),
		Address: strings.TrimSpace(a.Address),
		City:    strings.TrimSpace(a.City),
		Zip:     strings.TrimSpace(a.Zip),
	}
}

func paymentMethod(m string) string {
	if m = strings.TrimSpace(m); m == "" {
		return "bank_transfer"
	}
	return m
}

// orderNumber formats ORD-YYYYMMDD-XXXXXXXX.
func orderNumber(now time.Time) (string, error) {
	code, err := randomCode(8)
	if err != nil {
		return "", err
	}
	return "ORD-" + now.UTC().Format("20060102") + "-" + code, nil
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomCode(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}
