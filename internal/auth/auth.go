package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"quizmaster-service/internal/domain"
)

// RoleAuthor is the role claim required for quiz authoring operations.
const RoleAuthor = "author"

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator mints and verifies HS256 author tokens.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

func New(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// Enabled reports whether a signing secret is configured.
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

func (a *Authenticator) Mint(subject string, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", fmt.Errorf("auth secret not configured")
	}
	now := a.now()
	claims := Claims{
		Role: RoleAuthor,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify checks a raw bearer token and returns its claims. Every failure wraps
// domain.ErrUnauthorized.
func (a *Authenticator) Verify(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)
	}

	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !tok.Valid {
		return Claims{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	if claims.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: token has no expiry", domain.ErrUnauthorized)
	}
	if claims.Role != RoleAuthor {
		return Claims{}, fmt.Errorf("%w: author role required", domain.ErrUnauthorized)
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
