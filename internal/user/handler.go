package user

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/platformkit/user-management/internal"
	"github.com/platformkit/user-management/internal/auth"
	"github.com/platformkit/user-management/internal/transport"
	"github.com/platformkit/user-management/pkg/logger"
)

type ServiceAPI interface {
	Create(ctx context.Context, dto CreateUserDTO) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context, params ListUsersParams) (*PaginatedUsers, error)
	Update(ctx context.Context, id uuid.UUID, dto UpdateUserDTO) (*User, error)
	ChangePassword(ctx context.Context, id uuid.UUID, dto ChangePasswordDTO) error
	Delete(ctx context.Context, id uuid.UUID) error
	AssignRole(ctx context.Context, userID, roleID uuid.UUID) (*User, error)
	RemoveRole(ctx context.Context, userID, roleID uuid.UUID) (*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// CreateUser handles POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var dto CreateUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.writeUserError(w, r, "create user failed", err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, u)
}

// ListUsers handles GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params := ListUsersParams{
		Search: r.URL.Query().Get("search"),
	}
	if v := r.URL.Query().Get("page"); v != "" {
		params.Page, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		params.PerPage, _ = strconv.Atoi(v)
	}

	page, err := h.Service.List(r.Context(), params)
	if err != nil {
		h.writeUserError(w, r, "list users failed", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, page)
}

// GetUser handles GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	u, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.writeUserError(w, r, "get user failed", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	authUser, ok := auth.UserFromContext(r.Context())
	if !ok || authUser == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.Service.GetByID(r.Context(), authUser.ID)
	if err != nil {
		h.writeUserError(w, r, "get current user failed", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

// UpdateUser handles PATCH /users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	var dto UpdateUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.writeUserError(w, r, "update user failed", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

// ChangePassword handles PUT /users/{id}/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	var dto ChangePasswordDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.ChangePassword(r.Context(), id, dto); err != nil {
		h.writeUserError(w, r, "change password failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser handles DELETE /users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.writeUserError(w, r, "delete user failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AssignRole handles POST /users/{id}/roles
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	var dto AssignRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.Service.AssignRole(r.Context(), id, dto.RoleID)
	if err != nil {
		h.writeUserError(w, r, "assign role failed", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

// RemoveRole handles DELETE /users/{id}/roles/{roleID}
func (h *Handler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	roleID, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid role id")
		return
	}

	u, err := h.Service.RemoveRole(r.Context(), id, roleID)
	if err != nil {
		h.writeUserError(w, r, "remove role failed", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) userIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeUserError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.Logger.ErrorContext(r.Context(), msg, "error", err)

	switch {
	case errors.Is(err, ErrNotFound):
		h.WriteAppError(w, internal.ErrUserNotFound)
	case errors.Is(err, ErrRoleNotFound):
		h.WriteAppError(w, internal.ErrRoleNotFound)
	case errors.Is(err, ErrEmailTaken):
		h.WriteAppError(w, internal.NewConflictError("email already registered", internal.ErrCodeUserExists))
	case errors.Is(err, ErrUsernameTaken):
		h.WriteAppError(w, internal.NewConflictError("username already taken", internal.ErrCodeUserExists))
	default:
		var vErr ValidationError
		if errors.As(err, &vErr) {
			h.WriteAppError(w, internal.
				NewValidationError(vErr.Message, internal.ErrCodeValidationFailed).
				WithDetails(map[string]string{"field": vErr.Field}))
			return
		}
		h.WriteAppError(w, internal.NewInternalError("internal server error", err))
	}
}
