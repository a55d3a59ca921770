package user_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/platformkit/user-management/internal/auth"
	"github.com/platformkit/user-management/internal/user"
)

// MockService implements user.ServiceAPI for handler tests
type MockService struct {
	user    *user.User
	page    *user.PaginatedUsers
	err     error
	deleted bool
}

func (m *MockService) Create(_ context.Context, dto user.CreateUserDTO) (*user.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return m.user, m.err
}

func (m *MockService) GetByID(_ context.Context, _ uuid.UUID) (*user.User, error) {
	return m.user, m.err
}

func (m *MockService) List(_ context.Context, _ user.ListUsersParams) (*user.PaginatedUsers, error) {
	return m.page, m.err
}

func (m *MockService) Update(_ context.Context, _ uuid.UUID, _ user.UpdateUserDTO) (*user.User, error) {
	return m.user, m.err
}

func (m *MockService) ChangePassword(_ context.Context, _ uuid.UUID, dto user.ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	return m.err
}

func (m *MockService) Delete(_ context.Context, _ uuid.UUID) error {
	m.deleted = true
	return m.err
}

func (m *MockService) AssignRole(_ context.Context, _, _ uuid.UUID) (*user.User, error) {
	return m.user, m.err
}

func (m *MockService) RemoveRole(_ context.Context, _, _ uuid.UUID) (*user.User, error) {
	return m.user, m.err
}

var _ = Describe("User Handler", func() {
	var (
		svc     *MockService
		handler *user.Handler
		router  *chi.Mux
	)

	BeforeEach(func() {
		svc = &MockService{
			user: &user.User{ID: uuid.New(), Email: "alice@example.com", Username: "alice", IsActive: true},
		}
		handler = user.NewHandler(svc)

		router = chi.NewRouter()
		router.Post("/users", handler.CreateUser)
		router.Get("/users/me", handler.GetCurrentUser)
		router.Get("/users/{id}", handler.GetUser)
		router.Patch("/users/{id}", handler.UpdateUser)
		router.Delete("/users/{id}", handler.DeleteUser)
		router.Post("/users/{id}/roles", handler.AssignRole)
	})

	Describe("CreateUser", func() {
		It("returns 201 with the created user", func() {
			body := strings.NewReader(`{"email":"alice@example.com","username":"alice","password":"long-enough"}`)
			req := httptest.NewRequest(http.MethodPost, "/users", body)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(rec.Body.String()).To(ContainSubstring("alice@example.com"))
			Expect(rec.Body.String()).NotTo(ContainSubstring("password_hash"))
		})

		It("maps a duplicate email to a 409 with the typed envelope", func() {
			svc.err = user.ErrEmailTaken

			body := strings.NewReader(`{"email":"alice@example.com","username":"alice","password":"long-enough"}`)
			req := httptest.NewRequest(http.MethodPost, "/users", body)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusConflict))
			Expect(rec.Body.String()).To(ContainSubstring(`"type":"CONFLICT"`))
			Expect(rec.Body.String()).To(ContainSubstring(`"code":"USER_ALREADY_EXISTS"`))
		})

		It("maps a validation failure to 400 naming the field in details", func() {
			body := strings.NewReader(`{"email":"alice@example.com","username":"alice","password":"short"}`)
			req := httptest.NewRequest(http.MethodPost, "/users", body)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring(`"code":"VALIDATION_FAILED"`))
			Expect(rec.Body.String()).To(ContainSubstring(`"field":"password"`))
		})
	})

	Describe("GetUser", func() {
		It("maps an unknown user to 404", func() {
			svc.user = nil
			svc.err = user.ErrNotFound

			req := httptest.NewRequest(http.MethodGet, "/users/"+uuid.NewString(), nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("rejects a malformed id with 400", func() {
			req := httptest.NewRequest(http.MethodGet, "/users/not-a-uuid", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GetCurrentUser", func() {
		It("returns the user loaded by the auth middleware", func() {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			authUser := &auth.User{ID: svc.user.ID, Email: svc.user.Email, IsActive: true}
			req = req.WithContext(auth.ContextWithUser(req.Context(), authUser))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("alice@example.com"))
		})

		It("returns 401 without an authenticated user", func() {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("AssignRole", func() {
		It("maps an unknown role to 404", func() {
			svc.err = user.ErrRoleNotFound

			body := strings.NewReader(`{"role_id":"` + uuid.NewString() + `"}`)
			req := httptest.NewRequest(http.MethodPost, "/users/"+uuid.NewString()+"/roles", body)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("rejects a nil role id with 400", func() {
			body := strings.NewReader(`{}`)
			req := httptest.NewRequest(http.MethodPost, "/users/"+uuid.NewString()+"/roles", body)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("DeleteUser", func() {
		It("returns 204 on success", func() {
			req := httptest.NewRequest(http.MethodDelete, "/users/"+uuid.NewString(), nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(svc.deleted).To(BeTrue())
		})
	})
})
