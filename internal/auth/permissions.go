package auth

import (
	"context"
	"fmt"
	"log/slog"
)

// Evaluator answers (resource, action) authorization queries against the
// user's role→permission graph. It reads the graph through the store on
// every call; caching here would let revoked assignments keep granting
// access, so there is none.
type Evaluator struct {
	roles  RolePermissionStore
	logger *slog.Logger
}

func NewEvaluator(roles RolePermissionStore, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		roles:  roles,
		logger: logger,
	}
}

// Check returns true when the user may perform action on resource.
// Superusers pass unconditionally. Otherwise the user holds the union of
// all permissions of all assigned roles; the first exact
// (resource, action) match wins. A user with no roles is denied
// everything.
func (e *Evaluator) Check(ctx context.Context, user *User, resource, action string) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.IsSuperuser {
		return true, nil
	}

	for _, role := range user.Roles {
		perms, err := e.roles.PermissionsForRole(ctx, role.ID)
		if err != nil {
			return false, fmt.Errorf("%w: resolve permissions for role %q: %v", ErrStoreUnavailable, role.Name, err)
		}
		for _, p := range perms {
			if p.Resource == resource && p.Action == action {
				return true, nil
			}
		}
	}

	e.logger.DebugContext(ctx, "permission check denied",
		"user_id", user.ID,
		"resource", resource,
		"action", action)
	return false, nil
}
