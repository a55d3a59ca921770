package auth

import (
	"errors"
	"log/slog"
	"net/http"
)

// RBACAuthorization builds route guards on top of the permission
// evaluator. The original platform gated handlers with a decorator
// demanding a (resource, action) pair; here that becomes an explicit
// middleware that short-circuits the request on deny.
type RBACAuthorization struct {
	service ServiceAPI
	logger  *slog.Logger
}

func NewRBACAuthorization(service ServiceAPI, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		service: service,
		logger:  logger,
	}
}

// RequirePermission guards a route with an exact (resource, action)
// check. It expects AuthMiddleware to have run first.
func (ra *RBACAuthorization) RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				ra.logger.WarnContext(r.Context(), "authorization check failed: user not found in context")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			allowed, err := ra.service.CheckPermission(r.Context(), user, resource, action)
			if err != nil {
				if errors.Is(err, ErrStoreUnavailable) {
					ra.logger.ErrorContext(r.Context(), "authorization check failed: store unavailable",
						"error", err, "user_id", user.ID)
					http.Error(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
					return
				}
				ra.logger.ErrorContext(r.Context(), "authorization check failed",
					"error", err, "user_id", user.ID, "resource", resource, "action", action)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if !allowed {
				ra.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", user.ID,
					"resource", resource,
					"action", action)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
