package auth_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/platformkit/user-management/internal/auth"
)

// MockAuthService implements auth.ServiceAPI for handler tests
type MockAuthService struct {
	loginTokens auth.AuthTokens
	loginErr    error
	currentUser *auth.User
	currentErr  error
	allowed     bool
	checkErr    error
}

func (m *MockAuthService) Login(_ context.Context, dto auth.LoginDTO) (auth.AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return auth.AuthTokens{}, err
	}
	return m.loginTokens, m.loginErr
}

func (m *MockAuthService) Refresh(_ context.Context, _ string) (auth.AuthTokens, error) {
	return m.loginTokens, m.loginErr
}

func (m *MockAuthService) Authorize(_ context.Context, _, _, _ string) (*auth.User, error) {
	if m.currentErr != nil {
		return nil, m.currentErr
	}
	if !m.allowed {
		return nil, auth.ErrPermissionDenied
	}
	return m.currentUser, nil
}

func (m *MockAuthService) CurrentUser(_ context.Context, _ string) (*auth.User, error) {
	return m.currentUser, m.currentErr
}

func (m *MockAuthService) CheckPermission(_ context.Context, _ *auth.User, _, _ string) (bool, error) {
	return m.allowed, m.checkErr
}

func (m *MockAuthService) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

var _ = Describe("Auth Handler", func() {
	var (
		svc     *MockAuthService
		handler *auth.Handler
	)

	BeforeEach(func() {
		svc = &MockAuthService{
			loginTokens: auth.AuthTokens{
				AccessToken:  "access",
				RefreshToken: "refresh",
				TokenType:    "bearer",
				ExpiresIn:    3600,
			},
			currentUser: &auth.User{ID: uuid.New(), Email: "alice@example.com", IsActive: true},
		}
		handler = auth.NewHandler(svc)
	})

	Describe("Login", func() {
		It("returns the token pair on success", func() {
			body := strings.NewReader(`{"email":"alice@example.com","password":"pw"}`)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))

			var tokens auth.AuthTokens
			Expect(json.Unmarshal(rec.Body.Bytes(), &tokens)).To(Succeed())
			Expect(tokens.TokenType).To(Equal("bearer"))
			Expect(tokens.ExpiresIn).To(Equal(int64(3600)))
		})

		It("maps invalid credentials to 401", func() {
			svc.loginErr = auth.ErrInvalidCredentials

			body := strings.NewReader(`{"email":"alice@example.com","password":"bad"}`)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("writes the typed error envelope on a credential failure", func() {
			svc.loginErr = auth.ErrInvalidCredentials

			body := strings.NewReader(`{"email":"alice@example.com","password":"bad"}`)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			var resp struct {
				Error struct {
					Type    string `json:"type"`
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Error.Type).To(Equal("UNAUTHORIZED"))
			Expect(resp.Error.Code).To(Equal("INVALID_CREDENTIALS"))
			Expect(resp.Error.Message).NotTo(BeEmpty())
		})

		It("maps a store outage to 503, never to 401", func() {
			svc.loginErr = auth.ErrStoreUnavailable

			body := strings.NewReader(`{"email":"alice@example.com","password":"pw"}`)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(rec.Body.String()).To(ContainSubstring(`"code":"STORE_UNAVAILABLE"`))
		})

		It("rejects a missing field with 400", func() {
			body := strings.NewReader(`{"email":"alice@example.com"}`)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a malformed body with 400", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("RefreshToken", func() {
		It("maps an invalid refresh token to 401", func() {
			svc.loginErr = auth.ErrInvalidToken

			body := strings.NewReader(`{"refresh_token":"stale"}`)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", body)
			rec := httptest.NewRecorder()

			handler.RefreshToken(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("AuthMiddleware", func() {
		var next http.Handler

		BeforeEach(func() {
			next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user, ok := auth.UserFromContext(r.Context())
				Expect(ok).To(BeTrue())
				Expect(user.Email).To(Equal("alice@example.com"))
				w.WriteHeader(http.StatusOK)
			})
		})

		It("loads the user into the request context", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			req.Header.Set("Authorization", "Bearer good-token")
			rec := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("rejects a missing Authorization header", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			rec := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects an invalid token with 401", func() {
			svc.currentErr = auth.ErrInvalidToken

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			req.Header.Set("Authorization", "Bearer bad-token")
			rec := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("RBAC middleware", func() {
		var (
			rbac *auth.RBACAuthorization
			next http.Handler
		)

		BeforeEach(func() {
			rbac = auth.NewRBACAuthorization(svc, slog.Default())
			next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		})

		requestWithUser := func(u *auth.User) *http.Request {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			return req.WithContext(auth.ContextWithUser(req.Context(), u))
		}

		It("passes through when the permission check allows", func() {
			svc.allowed = true

			rec := httptest.NewRecorder()
			rbac.RequirePermission("users", "read")(next).ServeHTTP(rec, requestWithUser(svc.currentUser))

			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("returns 403 on deny", func() {
			svc.allowed = false

			rec := httptest.NewRecorder()
			rbac.RequirePermission("users", "read")(next).ServeHTTP(rec, requestWithUser(svc.currentUser))

			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("returns 503 when the role store is down", func() {
			svc.checkErr = auth.ErrStoreUnavailable

			rec := httptest.NewRecorder()
			rbac.RequirePermission("users", "read")(next).ServeHTTP(rec, requestWithUser(svc.currentUser))

			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		})

		It("returns 401 when no user is in context", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			rec := httptest.NewRecorder()

			rbac.RequirePermission("users", "read")(next).ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
