package cartstore

import (
	"errors"

	"storefront/internal/domain"
)

// claim marks lineID pending. A line already pending is rejected so a second
// edit cannot start before the first one completes.
func (s *Store) claim(lineID string) error {
	if lineID == "" {
		return nil
	}
	s.state.Lock()
	defer s.state.Unlock()
	if s.status[lineID] == domain.LinePending {
		return ErrLineBusy
	}
	s.status[lineID] = domain.LinePending
	return nil
}

func (s *Store) release(lineID string, err error) {
	if lineID == "" {
		return
	}
	s.state.Lock()
	defer s.state.Unlock()
	if err != nil && !errors.Is(err, ErrClosed) {
		s.status[lineID] = domain.LineError
		return
	}
	delete(s.status, lineID)
}

// LineStatus reports the state of the last mutation on lineID.
func (s *Store) LineStatus(lineID string) domain.LineStatus {
	s.state.RLock()
	defer s.state.RUnlock()
	if st, ok := s.status[lineID]; ok {
		return st
	}
	return domain.LineIdle
}

// LineStatuses returns the non-idle statuses keyed by line id.
func (s *Store) LineStatuses() map[string]domain.LineStatus {
	s.state.RLock()
	defer s.state.RUnlock()
	out := make(map[string]domain.LineStatus, len(s.status))
	for id, st := range s.status {
		out[id] = st
	}
	return out
}
