package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "storefront"

type tokenManager struct {
	secret []byte
	now    func() time.Time
}

func newTokenManager(secret []byte, now func() time.Time) *tokenManager {
	return &tokenManager{secret: secret, now: now}
}

func (m *tokenManager) Issue(sessionID string, ttl time.Duration) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(m.secret)
}

func (m *tokenManager) Validate(raw string) (string, bool) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}
