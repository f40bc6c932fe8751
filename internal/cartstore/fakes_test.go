package cartstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/notify"
)

var errUnavailable = errors.New("connection refused")

type catalogItem struct {
	sku   string
	name  string
	price decimal.Decimal
}

// fakeRemote is an in-memory cart service with a failure switch.
type fakeRemote struct {
	mu      sync.Mutex
	catalog map[string]catalogItem
	lines   []domain.CartLine
	fail    bool
	calls   int
	nextID  int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{catalog: map[string]catalogItem{
		"P1": {sku: "SKU-P1", name: "Kettle", price: decimal.NewFromInt(1000)},
		"P2": {sku: "SKU-P2", name: "Tee", price: decimal.RequireFromString("19.99")},
	}}
}

func (f *fakeRemote) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRemote) begin() error {
	f.calls++
	if f.fail {
		return errUnavailable
	}
	return nil
}

func (f *fakeRemote) snapshot() domain.Cart {
	lines := make([]domain.CartLine, len(f.lines))
	copy(lines, f.lines)
	return domain.NewCart(lines)
}

func (f *fakeRemote) Get(context.Context) (domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(); err != nil {
		return domain.Cart{}, err
	}
	return f.snapshot(), nil
}

func (f *fakeRemote) Add(_ context.Context, productID string, variant domain.Variant, qty int) (domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(); err != nil {
		return domain.Cart{}, err
	}
	for i := range f.lines {
		if f.lines[i].Matches(productID, variant) {
			f.lines[i].Quantity += qty
			return f.snapshot(), nil
		}
	}
	item, ok := f.catalog[productID]
	if !ok {
		return domain.Cart{}, domain.ErrNotFound
	}
	f.nextID++
	f.lines = append(f.lines, domain.CartLine{
		ID:        fmt.Sprintf("remote-%d", f.nextID),
		ProductID: productID,
		SKU:       item.sku,
		Name:      item.name,
		UnitPrice: item.price,
		Quantity:  qty,
		Variant:   variant,
	})
	return f.snapshot(), nil
}

func (f *fakeRemote) Update(_ context.Context, productID string, variant domain.Variant, qty int) (domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(); err != nil {
		return domain.Cart{}, err
	}
	for i := range f.lines {
		if f.lines[i].Matches(productID, variant) {
			f.lines[i].Quantity = qty
			return f.snapshot(), nil
		}
	}
	return domain.Cart{}, domain.ErrNotFound
}

func (f *fakeRemote) Remove(_ context.Context, productID string, variant domain.Variant) (domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(); err != nil {
		return domain.Cart{}, err
	}
	out := f.lines[:0]
	for _, l := range f.lines {
		if !l.Matches(productID, variant) {
			out = append(out, l)
		}
	}
	f.lines = out
	return f.snapshot(), nil
}

func (f *fakeRemote) Clear(context.Context) (domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(); err != nil {
		return domain.Cart{}, err
	}
	f.lines = nil
	return f.snapshot(), nil
}

// blockingRemote parks Add and Update until release is closed.
type blockingRemote struct {
	*fakeRemote
	entered chan struct{}
	release chan struct{}
}

func newBlockingRemote() *blockingRemote {
	return &blockingRemote{
		fakeRemote: newFakeRemote(),
		entered:    make(chan struct{}, 8),
		release:    make(chan struct{}),
	}
}

func (b *blockingRemote) Add(ctx context.Context, productID string, variant domain.Variant, qty int) (domain.Cart, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.fakeRemote.Add(ctx, productID, variant, qty)
}

func (b *blockingRemote) Update(ctx context.Context, productID string, variant domain.Variant, qty int) (domain.Cart, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.fakeRemote.Update(ctx, productID, variant, qty)
}

// recorder keeps every published event.
type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Publish(ev notify.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) reasons() []notify.Reason {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Reason, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Reason)
	}
	return out
}
