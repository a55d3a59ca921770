package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/platformkit/user-management/internal"
	"github.com/platformkit/user-management/internal/transport"
	"github.com/platformkit/user-management/pkg/logger"
)

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

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.writeAuthError(w, r, "login failed", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := h.Service.Refresh(r.Context(), dto.RefreshToken)
	if err != nil {
		h.writeAuthError(w, r, "token refresh failed", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

// Logout only validates the presented token; with stateless tokens there
// is nothing to revoke server-side.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	if _, err := h.Service.CurrentUser(r.Context(), token); err != nil {
		h.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware verifies the bearer access token and loads the live
// user (with role assignments) into the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		user, err := h.Service.CurrentUser(r.Context(), token)
		if err != nil {
			h.writeAuthError(w, r, "token validation failed", err)
			return
		}

		ctx := ContextWithUser(r.Context(), user)
		ctx = internal.ContextWithUserID(ctx, user.ID.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeAuthError maps service errors to the typed error envelope without
// leaking which internal check failed.
func (h *Handler) writeAuthError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.Logger.ErrorContext(r.Context(), msg, "error", err)

	if appErr, ok := internal.IsAppError(err); ok {
		h.WriteAppError(w, appErr)
		return
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		h.WriteAppError(w, internal.ErrInvalidCredentials)
	case errors.Is(err, ErrInvalidToken):
		h.WriteAppError(w, internal.ErrInvalidToken)
	case errors.Is(err, ErrPermissionDenied):
		h.WriteAppError(w, internal.ErrPermissionDenied)
	case errors.Is(err, ErrStoreUnavailable):
		h.WriteAppError(w, internal.NewUnavailableError("service temporarily unavailable", err))
	default:
		var vErr ValidationError
		if errors.As(err, &vErr) {
			h.WriteAppError(w, internal.NewValidationError(vErr.Error(), internal.ErrCodeValidationFailed))
			return
		}
		h.WriteAppError(w, internal.NewInternalError("internal server error", err))
	}
}
