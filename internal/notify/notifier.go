// Package notify broadcasts cart-changed signals to independent subscribers.
//
// Events carry no cart data: a subscriber treats every event as a request to
// re-fetch its own view of the cart.
package notify

import (
	"sync"
	"time"
)

type Kind string

const (
	KindCartChanged Kind = "cart_changed"
)

type Reason string

const (
	ReasonItemAdded       Reason = "item_added"
	ReasonQuantityChanged Reason = "quantity_changed"
	ReasonItemRemoved     Reason = "item_removed"
	ReasonCleared         Reason = "cleared"
	ReasonOrderPlaced     Reason = "order_placed"
)

type Event struct {
	Kind   Kind      `json:"kind"`
	Reason Reason    `json:"reason"`
	At     time.Time `json:"at"`
}

// Publisher is the side of the hub the cart store depends on.
type Publisher interface {
	Publish(Event)
}

// Hub fans events out to every open subscription.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscription receives events until Close is called.
type Subscription struct {
	ch   chan Event
	hub  *Hub
	once sync.Once
}

// C returns the event channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close detaches the subscription from its hub. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if _, ok := s.hub.subs[s]; ok {
			delete(s.hub.subs, s)
			close(s.ch)
		}
		s.hub.mu.Unlock()
	})
}

// Subscribe registers a new subscriber. Subscribing to a closed hub returns
// a subscription whose channel is already closed.
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{ch: make(chan Event, 1), hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(s.ch)
		s.once.Do(func() {})
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

// Publish delivers ev to every subscriber without blocking. A subscriber that
// has not drained its previous event keeps that one; both mean "re-fetch".
func (h *Hub) Publish(ev Event) {
	if ev.Kind == "" {
		ev.Kind = KindCartChanged
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.ch <- ev:
		default:
		}
	}
}

// Len returns the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
}
