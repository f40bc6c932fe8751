// Package session issues the anonymous shopper sessions that own carts.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

const DefaultTTL = 7 * 24 * time.Hour

type Service struct {
	tokens *tokenManager
	ttl    time.Duration
}

func New(secret string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("session secret required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		tokens: newTokenManager([]byte(secret), time.Now),
		ttl:    ttl,
	}, nil
}

// Issue starts a new anonymous session and returns its token and id.
func (s *Service) Issue(ctx context.Context) (token, sessionID string, err error) {
	sessionID = uuid.NewString()
	token, err = s.tokens.Issue(sessionID, s.ttl)
	if err != nil {
		return "", "", err
	}
	return token, sessionID, nil
}

// Lookup returns the session id a token was issued for.
func (s *Service) Lookup(ctx context.Context, token string) (string, error) {
	id, ok := s.tokens.Validate(token)
	if !ok {
		return "", ErrInvalidToken
	}
	return id, nil
}

func (s *Service) TTLSeconds() int {
	return int(s.ttl.Seconds())
}
