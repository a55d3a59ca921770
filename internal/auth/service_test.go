package auth_test

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/platformkit/user-management/internal"
	"github.com/platformkit/user-management/internal/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestCodec() *auth.TokenCodec {
	codec, err := auth.NewTokenCodec(&internal.SecurityConfig{
		JWTSecret:       testSecret,
		JWTAlgorithm:    "HS256",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 30 * 24 * time.Hour,
	})
	Expect(err).NotTo(HaveOccurred())
	return codec
}

func hashFor(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	Expect(err).NotTo(HaveOccurred())
	return string(hash)
}

// MockUserStore implements auth.UserStore for testing
type MockUserStore struct {
	users   map[uuid.UUID]*auth.User
	failErr error
}

func NewMockUserStore() *MockUserStore {
	return &MockUserStore{users: make(map[uuid.UUID]*auth.User)}
}

func (m *MockUserStore) Add(u *auth.User) {
	m.users[u.ID] = u
}

func (m *MockUserStore) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *MockUserStore) GetByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

// MockRoleStore implements auth.RolePermissionStore for testing
type MockRoleStore struct {
	perms   map[uuid.UUID][]auth.Permission
	failErr error
	calls   int
}

func NewMockRoleStore() *MockRoleStore {
	return &MockRoleStore{perms: make(map[uuid.UUID][]auth.Permission)}
}

func (m *MockRoleStore) Grant(roleID uuid.UUID, resource, action string) {
	m.perms[roleID] = append(m.perms[roleID], auth.Permission{
		ID:       uuid.New(),
		Name:     resource + ":" + action,
		Resource: resource,
		Action:   action,
	})
}

func (m *MockRoleStore) PermissionsForRole(_ context.Context, roleID uuid.UUID) ([]auth.Permission, error) {
	m.calls++
	if m.failErr != nil {
		return nil, m.failErr
	}
	return m.perms[roleID], nil
}

var _ = Describe("Auth Service", func() {
	var (
		users      *MockUserStore
		roles      *MockRoleStore
		codec      *auth.TokenCodec
		service    *auth.Service
		ctx        context.Context
		viewerRole uuid.UUID
		alice      *auth.User
	)

	BeforeEach(func() {
		users = NewMockUserStore()
		roles = NewMockRoleStore()
		codec = newTestCodec()
		service = auth.NewService(users, roles, codec, bcrypt.MinCost, slog.Default())
		ctx = context.Background()

		viewerRole = uuid.New()
		roles.Grant(viewerRole, "users", "read")

		alice = &auth.User{
			ID:           uuid.New(),
			Email:        "alice@example.com",
			Username:     "alice",
			IsActive:     true,
			PasswordHash: hashFor("correct-horse"),
			Roles:        []auth.Role{{ID: viewerRole, Name: "viewer"}},
		}
		users.Add(alice)
	})

	Describe("Login", func() {
		It("returns a bearer token pair with the access ttl in seconds", func() {
			tokens, err := service.Login(ctx, auth.LoginDTO{Email: "alice@example.com", Password: "correct-horse"})
			Expect(err).NotTo(HaveOccurred())

			Expect(tokens.TokenType).To(Equal("bearer"))
			Expect(tokens.ExpiresIn).To(Equal(int64(3600)))
			Expect(tokens.AccessToken).NotTo(BeEmpty())
			Expect(tokens.RefreshToken).NotTo(BeEmpty())

			claims, err := codec.Verify(tokens.AccessToken, auth.TokenKindAccess)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.Subject).To(Equal(alice.ID.String()))

			claims, err = codec.Verify(tokens.RefreshToken, auth.TokenKindRefresh)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.Subject).To(Equal(alice.ID.String()))
		})

		It("rejects an unknown email with invalid credentials", func() {
			_, err := service.Login(ctx, auth.LoginDTO{Email: "nobody@example.com", Password: "whatever"})
			Expect(errors.Is(err, auth.ErrInvalidCredentials)).To(BeTrue())
		})

		It("rejects a wrong password with invalid credentials", func() {
			_, err := service.Login(ctx, auth.LoginDTO{Email: "alice@example.com", Password: "wrong"})
			Expect(errors.Is(err, auth.ErrInvalidCredentials)).To(BeTrue())
		})

		It("rejects an inactive account with invalid credentials", func() {
			alice.IsActive = false
			users.Add(alice)

			_, err := service.Login(ctx, auth.LoginDTO{Email: "alice@example.com", Password: "correct-horse"})
			Expect(errors.Is(err, auth.ErrInvalidCredentials)).To(BeTrue())
		})

		It("returns the same error for unknown email, wrong password and inactive account", func() {
			_, unknownErr := service.Login(ctx, auth.LoginDTO{Email: "nobody@example.com", Password: "x"})
			_, wrongErr := service.Login(ctx, auth.LoginDTO{Email: "alice@example.com", Password: "wrong"})

			alice.IsActive = false
			users.Add(alice)
			_, inactiveErr := service.Login(ctx, auth.LoginDTO{Email: "alice@example.com", Password: "correct-horse"})

			Expect(unknownErr).To(Equal(wrongErr))
			Expect(wrongErr).To(Equal(inactiveErr))
		})

		It("surfaces a store outage distinctly from bad credentials", func() {
			users.failErr = errors.New("connection refused")

			_, err := service.Login(ctx, auth.LoginDTO{Email: "alice@example.com", Password: "correct-horse"})
			Expect(errors.Is(err, auth.ErrStoreUnavailable)).To(BeTrue())
			Expect(errors.Is(err, auth.ErrInvalidCredentials)).To(BeFalse())
		})

		It("rejects missing fields before touching the store", func() {
			_, err := service.Login(ctx, auth.LoginDTO{Email: "", Password: "x"})
			var vErr auth.ValidationError
			Expect(errors.As(err, &vErr)).To(BeTrue())
		})
	})

	Describe("Refresh", func() {
		var tokens auth.AuthTokens

		BeforeEach(func() {
			var err error
			tokens, err = service.Login(ctx, auth.LoginDTO{Email: "alice@example.com", Password: "correct-horse"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("mints a new access token without rotating the refresh token", func() {
			refreshed, err := service.Refresh(ctx, tokens.RefreshToken)
			Expect(err).NotTo(HaveOccurred())

			Expect(refreshed.AccessToken).NotTo(BeEmpty())
			Expect(refreshed.RefreshToken).To(BeEmpty())
			Expect(refreshed.TokenType).To(Equal("bearer"))
			Expect(refreshed.ExpiresIn).To(Equal(int64(3600)))

			claims, err := codec.Verify(refreshed.AccessToken, auth.TokenKindAccess)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.Subject).To(Equal(alice.ID.String()))

			// original refresh token still verifies
			_, err = codec.Verify(tokens.RefreshToken, auth.TokenKindRefresh)
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects an access token presented as refresh", func() {
			_, err := service.Refresh(ctx, tokens.AccessToken)
			Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
		})

		It("rejects a refresh token after the account was deactivated", func() {
			alice.IsActive = false
			users.Add(alice)

			_, err := service.Refresh(ctx, tokens.RefreshToken)
			Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
		})

		It("rejects a refresh token whose subject vanished", func() {
			delete(users.users, alice.ID)

			_, err := service.Refresh(ctx, tokens.RefreshToken)
			Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
		})

		It("surfaces a store outage instead of collapsing it into invalid token", func() {
			users.failErr = errors.New("connection refused")

			_, err := service.Refresh(ctx, tokens.RefreshToken)
			Expect(errors.Is(err, auth.ErrStoreUnavailable)).To(BeTrue())
			Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeFalse())
		})
	})

	Describe("Authorize", func() {
		var accessToken string

		BeforeEach(func() {
			tokens, err := service.Login(ctx, auth.LoginDTO{Email: "alice@example.com", Password: "correct-horse"})
			Expect(err).NotTo(HaveOccurred())
			accessToken = tokens.AccessToken
		})

		It("allows a user whose role carries the exact permission", func() {
			user, err := service.Authorize(ctx, accessToken, "users", "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.ID).To(Equal(alice.ID))
		})

		It("denies a user whose roles lack the (resource, action) pair", func() {
			_, err := service.Authorize(ctx, accessToken, "users", "delete")
			Expect(errors.Is(err, auth.ErrPermissionDenied)).To(BeTrue())
		})

		It("denies a user with no roles at all", func() {
			alice.Roles = nil
			users.Add(alice)

			_, err := service.Authorize(ctx, accessToken, "users", "read")
			Expect(errors.Is(err, auth.ErrPermissionDenied)).To(BeTrue())
		})

		It("allows a superuser regardless of roles", func() {
			alice.IsSuperuser = true
			alice.Roles = nil
			users.Add(alice)

			_, err := service.Authorize(ctx, accessToken, "anything", "at-all")
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects a tampered token", func() {
			_, err := service.Authorize(ctx, accessToken+"x", "users", "read")
			Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
		})

		It("reflects a permission revoked after the token was issued", func() {
			_, err := service.Authorize(ctx, accessToken, "users", "read")
			Expect(err).NotTo(HaveOccurred())

			roles.perms[viewerRole] = nil

			_, err = service.Authorize(ctx, accessToken, "users", "read")
			Expect(errors.Is(err, auth.ErrPermissionDenied)).To(BeTrue())
		})

		It("surfaces a role store outage instead of denying", func() {
			roles.failErr = errors.New("connection refused")

			_, err := service.Authorize(ctx, accessToken, "users", "read")
			Expect(errors.Is(err, auth.ErrStoreUnavailable)).To(BeTrue())
			Expect(errors.Is(err, auth.ErrPermissionDenied)).To(BeFalse())
		})
	})

	Describe("CurrentUser", func() {
		It("resolves a valid access token to its user", func() {
			tokens, err := service.Login(ctx, auth.LoginDTO{Email: "alice@example.com", Password: "correct-horse"})
			Expect(err).NotTo(HaveOccurred())

			user, err := service.CurrentUser(ctx, tokens.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Email).To(Equal("alice@example.com"))
		})

		It("rejects a refresh token used as an access token", func() {
			tokens, err := service.Login(ctx, auth.LoginDTO{Email: "alice@example.com", Password: "correct-horse"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CurrentUser(ctx, tokens.RefreshToken)
			Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
		})
	})

	Describe("HashPassword", func() {
		It("produces a hash that verifies against the original password", func() {
			hash, err := service.HashPassword("some-password")
			Expect(err).NotTo(HaveOccurred())
			Expect(auth.VerifyPassword(hash, "some-password")).To(Succeed())
			Expect(auth.VerifyPassword(hash, "other-password")).NotTo(Succeed())
		})
	})
})
