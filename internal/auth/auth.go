package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind discriminates access from refresh tokens. A token minted as
// one kind never verifies as the other, independent of signature and
// expiry validity.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

const TokenTypeBearer = "bearer"

// Claims is the signed envelope carried inside every token. The kind is
// serialized as "type" for compatibility with the rest of the platform.
type Claims struct {
	Kind TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// Subject returns the user id the token was minted for.
func (c *Claims) SubjectID() (uuid.UUID, error) {
	return uuid.Parse(c.RegisteredClaims.Subject)
}

// AuthTokens is the login/refresh response body.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// User is the authenticated identity as the authorization core sees it.
// The credential hash never appears in any serialized form.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	Roles       []Role    `json:"roles,omitempty"`

	PasswordHash string `json:"-"`
}

type Role struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Permission equality is defined on the (resource, action) pair.
type Permission struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Resource string    `json:"resource"`
	Action   string    `json:"action"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// UserStore is the read-only contract the auth core holds against the
// externally owned user persistence.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// RolePermissionStore resolves a role to its current permission set. The
// evaluator calls it on every check; implementations must not serve
// stale assignments.
type RolePermissionStore interface {
	PermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]Permission, error)
}

// ServiceAPI is what the transport layer is allowed to call.
type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (AuthTokens, error)
	Authorize(ctx context.Context, accessToken, resource, action string) (*User, error)
	CurrentUser(ctx context.Context, accessToken string) (*User, error)
	CheckPermission(ctx context.Context, user *User, resource, action string) (bool, error)
	HashPassword(password string) (string, error)
}

var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// inactive account alike; callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken covers bad signature, expiry and kind mismatch
	// alike; callers cannot tell which check failed.
	ErrInvalidToken = errors.New("invalid token")

	// ErrPermissionDenied means the identity is valid but lacks the
	// required (resource, action) permission.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrStoreUnavailable marks a store I/O failure. It is never folded
	// into a credential or not-found outcome.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound is the sentinel store implementations return for
	// absent rows, distinguishing them from I/O failures.
	ErrNotFound = errors.New("not found")
)

// ExpiresIn converts a ttl to the whole-second value reported in token
// responses.
func ExpiresIn(ttl time.Duration) int64 {
	return int64(ttl / time.Second)
}
