package cartstore

import (
	"context"

	"github.com/sirupsen/logrus"

	"storefront/internal/domain"
	"storefront/internal/notify"
)

type mutation struct {
	name   string
	lineID string
	reason notify.Reason
	remote func(ctx context.Context) (domain.Cart, error)
	local  func(lines []domain.CartLine) ([]domain.CartLine, error)
}

// mutate runs m against the remote service, or against local storage when
// the store is in local mode or the remote call fails.
func (s *Store) mutate(ctx context.Context, m mutation) (domain.Cart, error) {
	if err := s.claim(m.lineID); err != nil {
		return s.Snapshot(), err
	}
	s.op.Lock()
	defer s.op.Unlock()

	cart, err := s.apply(ctx, m)
	s.release(m.lineID, err)
	if err != nil {
		return s.Snapshot(), err
	}
	if s.pub != nil {
		s.pub.Publish(notify.Event{Kind: notify.KindCartChanged, Reason: m.reason})
	}
	return cart, nil
}

func (s *Store) apply(ctx context.Context, m mutation) (domain.Cart, error) {
	if s.isClosed() {
		return domain.Cart{}, ErrClosed
	}

	if s.Mode() == domain.SyncRemote {
		cart, err := m.remote(ctx)
		if s.isClosed() {
			return domain.Cart{}, ErrClosed
		}
		if err == nil {
			s.adoptRemote(ctx, m.name, cart)
			return s.Snapshot(), nil
		}
		s.fallback(m.name, err)
	}

	lines, err := s.local.Load(ctx)
	if err != nil {
		return domain.Cart{}, storageErr(err)
	}
	lines, err = m.local(lines)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := s.local.Save(ctx, lines); err != nil {
		return domain.Cart{}, storageErr(err)
	}
	if s.isClosed() {
		return domain.Cart{}, ErrClosed
	}
	s.setCart(domain.NewCart(lines))
	return s.Snapshot(), nil
}

// adoptRemote makes a remote snapshot current and mirrors it locally so a
// later fallback starts from the last known remote state.
func (s *Store) adoptRemote(ctx context.Context, op string, cart domain.Cart) {
	s.state.Lock()
	if s.mode != domain.SyncRemote {
		s.log.WithField("op", op).Info("cart service reachable again, leaving local mode")
	}
	s.mode = domain.SyncRemote
	s.state.Unlock()

	s.setCart(cart)
	if err := s.local.Save(ctx, cart.Lines); err != nil {
		s.log.WithError(err).WithField("op", op).Warn("mirror remote cart to local storage failed")
	}
}

// fallback records a swallowed remote error and switches to local mode.
func (s *Store) fallback(op string, err error) {
	s.state.Lock()
	prev := s.mode
	s.mode = domain.SyncLocal
	s.state.Unlock()

	entry := s.log.WithError(err).WithFields(logrus.Fields{"op": op, "mode": domain.SyncLocal})
	if prev == domain.SyncRemote {
		entry.Warn("cart service unavailable, working offline")
		return
	}
	entry.Debug("cart service still unavailable")
}
