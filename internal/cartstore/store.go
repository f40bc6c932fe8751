// Package cartstore holds one shopper's cart. Every operation first goes to
// the remote cart service and falls back to a locally persisted copy when the
// remote is unavailable.
package cartstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"storefront/internal/domain"
	"storefront/internal/localstore"
	"storefront/internal/notify"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidLine     = errors.New("product id and positive unit price required")
	ErrLineBusy        = errors.New("line has a pending update")
	ErrClosed          = errors.New("cart store closed")
	// ErrStorage wraps failures of the local persistence layer. These are the
	// only errors a mutation propagates besides argument validation.
	ErrStorage = errors.New("local cart storage failed")
)

// Remote is the remote cart service as seen by one session.
type Remote interface {
	Get(ctx context.Context) (domain.Cart, error)
	Add(ctx context.Context, productID string, variant domain.Variant, qty int) (domain.Cart, error)
	Update(ctx context.Context, productID string, variant domain.Variant, qty int) (domain.Cart, error)
	Remove(ctx context.Context, productID string, variant domain.Variant) (domain.Cart, error)
	Clear(ctx context.Context) (domain.Cart, error)
}

// AddInput describes the product being added. SKU, name and price are kept
// so the line can be built locally when the remote is down.
type AddInput struct {
	ProductID string          `json:"productId"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Variant   domain.Variant  `json:"variant"`
}

type Options struct {
	Logger    logrus.FieldLogger
	Publisher notify.Publisher
	NewLineID func() string
}

type Store struct {
	// op serializes operations: each one fully completes before the next
	// reads the cart.
	op sync.Mutex

	remote Remote
	local  *localstore.LineStore
	pub    notify.Publisher
	log    logrus.FieldLogger
	newID  func() string

	state  sync.RWMutex
	cart   domain.Cart
	mode   domain.SyncMode
	status map[string]domain.LineStatus
	closed bool
	// loaded is set once the cache holds a cart read from the remote or
	// local storage. Until then line lookups go through Get first.
	loaded bool
}

func New(remote Remote, local *localstore.LineStore, opts Options) *Store {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	newID := opts.NewLineID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	return &Store{
		remote: remote,
		local:  local,
		pub:    opts.Publisher,
		log:    log,
		newID:  newID,
		cart:   domain.NewCart(nil),
		mode:   domain.SyncRemote,
		status: make(map[string]domain.LineStatus),
	}
}

// Get returns the current cart. It is the only operation that re-attempts the
// remote service once the store has switched to local mode.
func (s *Store) Get(ctx context.Context) (domain.Cart, error) {
	s.op.Lock()
	defer s.op.Unlock()
	if s.isClosed() {
		return domain.Cart{}, ErrClosed
	}

	cart, err := s.remote.Get(ctx)
	if s.isClosed() {
		return domain.Cart{}, ErrClosed
	}
	if err == nil {
		s.adoptRemote(ctx, "get", cart)
		return s.Snapshot(), nil
	}

	s.fallback("get", err)
	lines, err := s.local.Load(ctx)
	if err != nil {
		return domain.Cart{}, storageErr(err)
	}
	s.setCart(domain.NewCart(lines))
	return s.Snapshot(), nil
}

// Load returns the cached cart, reading it through Get if the store has not
// read a cart yet.
func (s *Store) Load(ctx context.Context) (domain.Cart, error) {
	if s.isLoaded() {
		return s.Snapshot(), nil
	}
	return s.Get(ctx)
}

// AddItem adds qty of a product, merging into an existing line with the same
// product and variant.
func (s *Store) AddItem(ctx context.Context, in AddInput, qty int) (domain.Cart, error) {
	if qty < 1 {
		return s.Snapshot(), ErrInvalidQuantity
	}
	in.ProductID = strings.TrimSpace(in.ProductID)
	if in.ProductID == "" || !in.UnitPrice.IsPositive() {
		return s.Snapshot(), ErrInvalidLine
	}

	snap, err := s.Load(ctx)
	if err != nil {
		return s.Snapshot(), err
	}
	lineID := ""
	if idx := snap.FindMatch(in.ProductID, in.Variant); idx >= 0 {
		lineID = snap.Lines[idx].ID
	}

	return s.mutate(ctx, mutation{
		name:   "add",
		lineID: lineID,
		reason: notify.ReasonItemAdded,
		remote: func(ctx context.Context) (domain.Cart, error) {
			return s.remote.Add(ctx, in.ProductID, in.Variant, qty)
		},
		local: func(lines []domain.CartLine) ([]domain.CartLine, error) {
			c := domain.Cart{Lines: lines}
			if idx := c.FindMatch(in.ProductID, in.Variant); idx >= 0 {
				lines[idx].Quantity += qty
				return lines, nil
			}
			return append(lines, domain.CartLine{
				ID:        s.newID(),
				ProductID: in.ProductID,
				SKU:       in.SKU,
				Name:      in.Name,
				UnitPrice: in.UnitPrice,
				Quantity:  qty,
				Variant:   in.Variant,
			}), nil
		},
	})
}

// SetQuantity changes a line's quantity. A quantity below 1 is rejected and
// leaves the line untouched; removing a line requires RemoveItem.
func (s *Store) SetQuantity(ctx context.Context, lineID string, qty int) (domain.Cart, error) {
	if qty < 1 {
		return s.Snapshot(), ErrInvalidQuantity
	}
	snap, err := s.Load(ctx)
	if err != nil {
		return s.Snapshot(), err
	}
	idx := snap.Find(lineID)
	if idx < 0 {
		return snap, domain.ErrNotFound
	}
	line := snap.Lines[idx]

	return s.mutate(ctx, mutation{
		name:   "set_quantity",
		lineID: lineID,
		reason: notify.ReasonQuantityChanged,
		remote: func(ctx context.Context) (domain.Cart, error) {
			return s.remote.Update(ctx, line.ProductID, line.Variant, qty)
		},
		local: func(lines []domain.CartLine) ([]domain.CartLine, error) {
			c := domain.Cart{Lines: lines}
			i := c.Find(lineID)
			if i < 0 {
				i = c.FindMatch(line.ProductID, line.Variant)
			}
			if i < 0 {
				return nil, domain.ErrNotFound
			}
			lines[i].Quantity = qty
			return lines, nil
		},
	})
}

// RemoveItem deletes a line. Removing an absent line is a no-op.
func (s *Store) RemoveItem(ctx context.Context, lineID string) (domain.Cart, error) {
	snap, err := s.Load(ctx)
	if err != nil {
		return s.Snapshot(), err
	}
	idx := snap.Find(lineID)
	if idx < 0 {
		return snap, nil
	}
	line := snap.Lines[idx]

	return s.mutate(ctx, mutation{
		name:   "remove",
		lineID: lineID,
		reason: notify.ReasonItemRemoved,
		remote: func(ctx context.Context) (domain.Cart, error) {
			return s.remote.Remove(ctx, line.ProductID, line.Variant)
		},
		local: func(lines []domain.CartLine) ([]domain.CartLine, error) {
			out := lines[:0]
			for _, l := range lines {
				if l.ID == lineID || l.Matches(line.ProductID, line.Variant) {
					continue
				}
				out = append(out, l)
			}
			return out, nil
		},
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) (domain.Cart, error) {
	return s.clear(ctx, notify.ReasonCleared)
}

// ClearForOrder empties the cart after a successful order. The single signal
// it emits is tagged as an order placement.
func (s *Store) ClearForOrder(ctx context.Context) (domain.Cart, error) {
	return s.clear(ctx, notify.ReasonOrderPlaced)
}

func (s *Store) clear(ctx context.Context, reason notify.Reason) (domain.Cart, error) {
	return s.mutate(ctx, mutation{
		name:   "clear",
		reason: reason,
		remote: s.remote.Clear,
		local: func([]domain.CartLine) ([]domain.CartLine, error) {
			return []domain.CartLine{}, nil
		},
	})
}

// Snapshot returns a copy of the last known cart without any I/O.
func (s *Store) Snapshot() domain.Cart {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.cart.Clone()
}

// Mode reports whether the store is backed by the remote service.
func (s *Store) Mode() domain.SyncMode {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.mode
}

// Close stops the store. Results of calls still in flight are discarded.
func (s *Store) Close() {
	s.state.Lock()
	s.closed = true
	s.state.Unlock()
}

func (s *Store) isClosed() bool {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.closed
}

func (s *Store) isLoaded() bool {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.loaded
}

func (s *Store) setCart(c domain.Cart) {
	c.Recompute()
	s.state.Lock()
	s.cart = c
	s.loaded = true
	s.state.Unlock()
}

func storageErr(err error) error {
	return errors.Join(ErrStorage, err)
}
