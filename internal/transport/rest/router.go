package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/platformkit/user-management/internal/auth"
	"github.com/platformkit/user-management/internal/role"
	"github.com/platformkit/user-management/internal/transport/middleware"
	"github.com/platformkit/user-management/internal/transport/swagger"
	"github.com/platformkit/user-management/internal/user"
)

// RegisterAllRoutes wires the full HTTP surface. Admin routes are
// guarded by (resource, action) checks evaluated against the live role
// assignments on every request.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authHandler *auth.Handler, rbac *auth.RBACAuthorization, userHandler *user.Handler, roleHandler *role.Handler, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// OpenAPI spec and Swagger UI live outside the API prefix
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", authHandler.Login)
			sr.Post("/refresh", authHandler.RefreshToken)
			sr.Post("/logout", authHandler.Logout)
		})

		// Everything below requires a valid access token
		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			pr.Get("/users/me", userHandler.GetCurrentUser)

			pr.Route("/users", func(ur chi.Router) {
				ur.With(rbac.RequirePermission("users", "read")).Get("/", userHandler.ListUsers)
				ur.With(rbac.RequirePermission("users", "read")).Get("/{id}", userHandler.GetUser)
				ur.With(rbac.RequirePermission("users", "create")).Post("/", userHandler.CreateUser)
				ur.With(rbac.RequirePermission("users", "update")).Patch("/{id}", userHandler.UpdateUser)
				ur.With(rbac.RequirePermission("users", "update")).Put("/{id}/password", userHandler.ChangePassword)
				ur.With(rbac.RequirePermission("users", "delete")).Delete("/{id}", userHandler.DeleteUser)
				ur.With(rbac.RequirePermission("roles", "manage")).Post("/{id}/roles", userHandler.AssignRole)
				ur.With(rbac.RequirePermission("roles", "manage")).Delete("/{id}/roles/{roleID}", userHandler.RemoveRole)
			})

			pr.Route("/roles", func(rr chi.Router) {
				rr.Use(rbac.RequirePermission("roles", "manage"))
				rr.Get("/", roleHandler.ListRoles)
				rr.Post("/", roleHandler.CreateRole)
				rr.Get("/{id}", roleHandler.GetRole)
				rr.Patch("/{id}", roleHandler.UpdateRole)
				rr.Delete("/{id}", roleHandler.DeleteRole)
				rr.Post("/{id}/permissions", roleHandler.AttachPermission)
				rr.Delete("/{id}/permissions/{permissionID}", roleHandler.DetachPermission)
			})

			pr.Route("/permissions", func(pmr chi.Router) {
				pmr.Use(rbac.RequirePermission("roles", "manage"))
				pmr.Get("/", roleHandler.ListPermissions)
				pmr.Post("/", roleHandler.CreatePermission)
			})
		})
	})
}
