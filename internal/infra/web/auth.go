// File: internal/infra/web/auth.go
package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthManager validates buyer session tokens. Tokens are optional on the
// payment API: a missing or bad token degrades to an anonymous checkout
// instead of a 401.
type AuthManager struct {
	secret []byte
}

func NewAuthManager(secret string) *AuthManager {
	return &AuthManager{secret: []byte(secret)}
}

type buyerClaims struct {
	jwt.RegisteredClaims
}

// Mint issues a buyer token, mainly for tests and internal tooling.
func (a *AuthManager) Mint(buyerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := buyerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   buyerID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// SubjectFromRequest returns the buyer id from a Bearer token, or "" when the
// request carries no usable token.
func (a *AuthManager) SubjectFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	var claims buyerClaims
	token, err := jwt.ParseWithClaims(parts[1], &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	return claims.Subject
}
