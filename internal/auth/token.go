package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/platformkit/user-management/internal"
)

// TokenCodec signs and verifies claims envelopes with a process-wide
// symmetric secret. It is immutable after construction and safe for
// concurrent use.
type TokenCodec struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenCodec validates the security configuration and builds the
// codec. A bad secret or algorithm is a fatal configuration error.
func NewTokenCodec(cfg *internal.SecurityConfig) (*TokenCodec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("security config: %w", err)
	}

	var method jwt.SigningMethod
	switch cfg.JWTAlgorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.JWTAlgorithm)
	}

	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = internal.DefaultAccessTokenTTL
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = internal.DefaultRefreshTokenTTL
	}

	return &TokenCodec{
		secret:     []byte(cfg.JWTSecret),
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

func (c *TokenCodec) AccessTTL() time.Duration {
	return c.accessTTL
}

func (c *TokenCodec) RefreshTTL() time.Duration {
	return c.refreshTTL
}

// Issue mints a signed token for subject with exp = now + ttl.
func (c *TokenCodec) Issue(subject string, kind TokenKind, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(c.method, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (c *TokenCodec) IssueAccess(subject string) (string, error) {
	return c.Issue(subject, TokenKindAccess, c.accessTTL)
}

func (c *TokenCodec) IssueRefresh(subject string) (string, error) {
	return c.Issue(subject, TokenKindRefresh, c.refreshTTL)
}

// Verify checks signature, expiry and kind. All three checks are
// mandatory; every failure collapses into ErrInvalidToken so the caller
// learns nothing about which one tripped.
func (c *TokenCodec) Verify(tokenString string, expected TokenKind) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if claims.Kind != expected {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
