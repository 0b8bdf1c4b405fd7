// Package auth issues and checks the credentials used by the projtrack API:
// short-lived signed access tokens, rotating refresh tokens and the
// failed-login lockout.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/good-yellow-bee/projtrack/internal/models"
)

const tokenIssuer = "projtrack"

// ErrInvalidToken wraps every access token rejection.
var ErrInvalidToken = errors.New("invalid access token")

// Claims is the payload of an access token. The role travels in the token so
// edit checks do not need a user lookup.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string      `json:"uid"`
	Username string      `json:"usr"`
	Role     models.Role `json:"role"`
}

// CanEdit reports whether the token holder may modify existing projects.
func (c *Claims) CanEdit() bool {
	return c.Role.CanEdit()
}

// JWTService signs access tokens with HS256 and verifies them.
type JWTService struct {
	key    []byte
	ttl    time.Duration
	parser *jwt.Parser
}

// NewJWTService returns a service signing with secret. Tokens expire after ttl.
func NewJWTService(secret []byte, ttl time.Duration) *JWTService {
	return &JWTService{
		key: secret,
		ttl: ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}
}

// GenerateToken signs an access token for user.
func (s *JWTService) GenerateToken(user *models.User) (string, error) {
	issued := time.Now()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(s.ttl)),
		},
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature, issuer and expiry and returns the claims.
func (s *JWTService) ValidateToken(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	return claims, nil
}

// TTL is the lifetime of issued tokens.
func (s *JWTService) TTL() time.Duration { return s.ttl }

// TTLSeconds is TTL rounded down to whole seconds, as reported in expires_in.
func (s *JWTService) TTLSeconds() int { return int(s.ttl / time.Second) }

type claimsKey struct{}

// ContextWithClaims returns a copy of ctx carrying c.
func ContextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the claims of a token-authenticated request, or
// nil for session or anonymous requests.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}
