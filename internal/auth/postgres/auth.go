package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platformkit/user-management/internal/auth"
)

// Repository implements both store contracts of the auth core on top of
// gorm. All reads are point lookups against the current state; nothing
// is cached here.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getUser(ctx, `SELECT id, email, username, first_name, last_name, password_hash, is_active, is_superuser
		FROM users WHERE email = ?`, email)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return r.getUser(ctx, `SELECT id, email, username, first_name, last_name, password_hash, is_active, is_superuser
		FROM users WHERE id = ?`, id)
}

func (r *Repository) getUser(ctx context.Context, query string, arg interface{}) (*auth.User, error) {
	var user auth.User

	row := r.db.WithContext(ctx).Raw(query, arg).Row()
	if err := row.Scan(&user.ID, &user.Email, &user.Username, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.IsActive, &user.IsSuperuser); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}

	roles, err := r.rolesForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles

	return &user, nil
}

func (r *Repository) rolesForUser(ctx context.Context, userID uuid.UUID) ([]auth.Role, error) {
	query := `SELECT r.id, r.name
	          FROM roles r
	          JOIN user_roles ur ON r.id = ur.role_id
	          WHERE ur.user_id = ? AND r.is_active = true`

	rows, err := r.db.WithContext(ctx).Raw(query, userID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		var role auth.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// PermissionsForRole reads the role's permission set as it stands now.
// The evaluator calls this on every check.
func (r *Repository) PermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]auth.Permission, error) {
	query := `SELECT p.id, p.name, p.resource, p.action
	          FROM permissions p
	          JOIN role_permissions rp ON p.id = rp.permission_id
	          WHERE rp.role_id = ?`

	rows, err := r.db.WithContext(ctx).Raw(query, roleID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []auth.Permission
	for rows.Next() {
		var p auth.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Resource, &p.Action); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
