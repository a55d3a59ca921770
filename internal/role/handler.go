package role

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/platformkit/user-management/internal"
	"github.com/platformkit/user-management/internal/transport"
	"github.com/platformkit/user-management/pkg/logger"
)

type ServiceAPI interface {
	CreateRole(ctx context.Context, dto CreateRoleDTO) (*Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (*Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, dto UpdateRoleDTO) (*Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
	CreatePermission(ctx context.Context, dto CreatePermissionDTO) (*Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	AttachPermission(ctx context.Context, roleID, permissionID uuid.UUID) (*Role, error)
	DetachPermission(ctx context.Context, roleID, permissionID uuid.UUID) (*Role, error)
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

// CreateRole handles POST /roles
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var dto CreateRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Service.CreateRole(r.Context(), dto)
	if err != nil {
		h.writeRoleError(w, r, "create role failed", err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, created)
}

// ListRoles handles GET /roles
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.ListRoles(r.Context())
	if err != nil {
		h.writeRoleError(w, r, "list roles failed", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, roles)
}

// GetRole handles GET /roles/{id}
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleIDParam(w, r)
	if !ok {
		return
	}

	role, err := h.Service.GetRole(r.Context(), id)
	if err != nil {
		h.writeRoleError(w, r, "get role failed", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, role)
}

// UpdateRole handles PATCH /roles/{id}
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleIDParam(w, r)
	if !ok {
		return
	}

	var dto UpdateRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.Service.UpdateRole(r.Context(), id, dto)
	if err != nil {
		h.writeRoleError(w, r, "update role failed", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, role)
}

// DeleteRole handles DELETE /roles/{id}
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleIDParam(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteRole(r.Context(), id); err != nil {
		h.writeRoleError(w, r, "delete role failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreatePermission handles POST /permissions
func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var dto CreatePermissionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.Service.CreatePermission(r.Context(), dto)
	if err != nil {
		h.writeRoleError(w, r, "create permission failed", err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, p)
}

// ListPermissions handles GET /permissions
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.Service.ListPermissions(r.Context())
	if err != nil {
		h.writeRoleError(w, r, "list permissions failed", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, perms)
}

// AttachPermission handles POST /roles/{id}/permissions
func (h *Handler) AttachPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleIDParam(w, r)
	if !ok {
		return
	}

	var dto AttachPermissionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	role, err := h.Service.AttachPermission(r.Context(), id, dto.PermissionID)
	if err != nil {
		h.writeRoleError(w, r, "attach permission failed", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, role)
}

// DetachPermission handles DELETE /roles/{id}/permissions/{permissionID}
func (h *Handler) DetachPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleIDParam(w, r)
	if !ok {
		return
	}

	permissionID, err := uuid.Parse(chi.URLParam(r, "permissionID"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid permission id")
		return
	}

	role, err := h.Service.DetachPermission(r.Context(), id, permissionID)
	if err != nil {
		h.writeRoleError(w, r, "detach permission failed", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, role)
}

func (h *Handler) roleIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid role id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeRoleError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.Logger.ErrorContext(r.Context(), msg, "error", err)

	switch {
	case errors.Is(err, ErrNotFound):
		h.WriteAppError(w, internal.ErrRoleNotFound)
	case errors.Is(err, ErrPermissionNotFound):
		h.WriteAppError(w, internal.NewNotFoundError("permission not found", internal.ErrCodePermissionNotFound))
	case errors.Is(err, ErrNameTaken):
		h.WriteAppError(w, internal.NewConflictError("role name already exists", internal.ErrCodeRoleExists))
	case errors.Is(err, ErrPermissionDuplicate):
		h.WriteAppError(w, internal.NewConflictError("permission already exists", internal.ErrCodePermissionDup))
	case errors.Is(err, ErrRoleInUse):
		h.WriteAppError(w, internal.NewConflictError("role is assigned to users", internal.ErrCodeRoleInUse))
	default:
		var vErr ValidationError
		if errors.As(err, &vErr) {
			h.WriteAppError(w, internal.NewValidationError(vErr.Error(), internal.ErrCodeValidationFailed))
			return
		}
		h.WriteAppError(w, internal.NewInternalError("internal server error", err))
	}
}
