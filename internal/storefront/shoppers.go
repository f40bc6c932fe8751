package storefront

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/cartstore"
	"storefront/internal/checkout"
	"storefront/internal/localstore"
	"storefront/internal/notify"
	"storefront/internal/totals"
)

// DefaultIdle is how long a shopper may stay inactive before eviction.
const DefaultIdle = 30 * time.Minute

// Shopper is the per-session state: one cart store, its notifier and the
// checkout submitter bound to that cart.
type Shopper struct {
	SessionID string
	Cart      *cartstore.Store
	Checkout  *checkout.Submitter
	Events    *notify.Hub

	lastSeen time.Time
}

// Factory builds the collaborators of a new shopper. Remote and Orders are
// bound to the shopper's session token.
type Factory struct {
	Remote  func(token string) cartstore.Remote
	Orders  func(token string) checkout.Orders
	Storage localstore.Storage
	Rates   totals.Rates
	Logger  logrus.FieldLogger
}

// Shoppers keeps live shoppers keyed by session id.
type Shoppers struct {
	factory Factory
	idle    time.Duration
	now     func() time.Time
	log     logrus.FieldLogger

	mu       sync.Mutex
	shoppers map[string]*Shopper
	closed   bool
}

func NewShoppers(f Factory, idle time.Duration) *Shoppers {
	if idle <= 0 {
		idle = DefaultIdle
	}
	log := f.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	f.Logger = log
	if f.Storage == nil {
		f.Storage = localstore.NewMemory(0)
	}
	return &Shoppers{
		factory:  f,
		idle:     idle,
		now:      time.Now,
		log:      log,
		shoppers: make(map[string]*Shopper),
	}
}

// Acquire returns the shopper for sessionID, creating it on first use.
func (m *Shoppers) Acquire(sessionID, token string) (*Shopper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, cartstore.ErrClosed
	}
	if sh, ok := m.shoppers[sessionID]; ok {
		sh.lastSeen = m.now()
		return sh, nil
	}

	log := m.factory.Logger.WithField("session", sessionID)
	hub := notify.NewHub()
	store := cartstore.New(
		m.factory.Remote(token),
		localstore.NewLineStore(m.factory.Storage, sessionID),
		cartstore.Options{Logger: log, Publisher: hub},
	)
	sh := &Shopper{
		SessionID: sessionID,
		Cart:      store,
		Checkout:  checkout.NewSubmitter(store, m.factory.Orders(token), m.factory.Rates, log),
		Events:    hub,
		lastSeen:  m.now(),
	}
	m.shoppers[sessionID] = sh
	log.Debug("shopper created")
	return sh, nil
}

// Touch marks the shopper active.
func (m *Shoppers) Touch(sh *Shopper) {
	m.mu.Lock()
	sh.lastSeen = m.now()
	m.mu.Unlock()
}

// Len returns the number of live shoppers.
func (m *Shoppers) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shoppers)
}

// Sweep evicts shoppers idle for longer than the idle timeout and returns
// how many were evicted. Their locally persisted carts are kept.
func (m *Shoppers) Sweep() int {
	cutoff := m.now().Add(-m.idle)
	var evicted []*Shopper
	m.mu.Lock()
	for id, sh := range m.shoppers {
		if sh.lastSeen.Before(cutoff) {
			evicted = append(evicted, sh)
			delete(m.shoppers, id)
		}
	}
	m.mu.Unlock()

	for _, sh := range evicted {
		closeShopper(sh)
	}
	if len(evicted) > 0 {
		m.log.WithField("evicted", len(evicted)).Info("idle shoppers evicted")
	}
	return len(evicted)
}

// Run sweeps every interval until ctx is done.
func (m *Shoppers) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close evicts every shopper and rejects new ones.
func (m *Shoppers) Close() {
	m.mu.Lock()
	all := m.shoppers
	m.shoppers = make(map[string]*Shopper)
	m.closed = true
	m.mu.Unlock()
	for _, sh := range all {
		closeShopper(sh)
	}
}

func closeShopper(sh *Shopper) {
	sh.Cart.Close()
	sh.Events.Close()
}
