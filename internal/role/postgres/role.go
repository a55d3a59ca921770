package role

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	userDatamodel "github.com/platformkit/user-management/internal/core/datamodel/user"
	"github.com/platformkit/user-management/internal/role"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) CreateRole(ctx context.Context, rl *role.Role) error {
	m := role.ToDataModel(rl)

	query := `INSERT INTO roles (id, name, description, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	return r.db.WithContext(ctx).Exec(query,
		m.ID, m.Name, m.Description, m.IsActive, m.CreatedAt, m.UpdatedAt).Error
}

func (r *Repository) GetRole(ctx context.Context, id uuid.UUID) (*role.Role, error) {
	return r.getRole(ctx, `SELECT id, name, description, is_active, created_at, updated_at
		FROM roles WHERE id = ?`, id)
}

func (r *Repository) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	return r.getRole(ctx, `SELECT id, name, description, is_active, created_at, updated_at
		FROM roles WHERE name = ?`, name)
}

func (r *Repository) getRole(ctx context.Context, query string, arg interface{}) (*role.Role, error) {
	var m userDatamodel.Role

	row := r.db.WithContext(ctx).Raw(query, arg).Row()
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &m.IsActive,
		&m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, role.ErrNotFound
		}
		return nil, err
	}

	return role.FromDataModel(&m), nil
}

func (r *Repository) ListRoles(ctx context.Context) ([]role.Role, error) {
	query := `SELECT id, name, description, is_active, created_at, updated_at
	          FROM roles ORDER BY name`

	rows, err := r.db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []role.Role{}
	for rows.Next() {
		var m userDatamodel.Role
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.IsActive,
			&m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, *role.FromDataModel(&m))
	}
	return roles, rows.Err()
}

func (r *Repository) UpdateRole(ctx context.Context, rl *role.Role) error {
	m := role.ToDataModel(rl)

	query := `UPDATE roles SET name = ?, description = ?, is_active = ?, updated_at = ?
		WHERE id = ?`

	result := r.db.WithContext(ctx).Exec(query,
		m.Name, m.Description, m.IsActive, m.UpdatedAt, m.ID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return role.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM role_permissions WHERE role_id = ?`, id).Error; err != nil {
			return err
		}

		result := tx.Exec(`DELETE FROM roles WHERE id = ?`, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return role.ErrNotFound
		}
		return nil
	})
}

func (r *Repository) AssignedUserCount(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	row := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM user_roles WHERE role_id = ?`, roleID).Row()
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) CreatePermission(ctx context.Context, p *role.Permission) error {
	query := `INSERT INTO permissions (id, name, description, resource, action, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	return r.db.WithContext(ctx).Exec(query,
		p.ID, p.Name, p.Description, p.Resource, p.Action, p.CreatedAt).Error
}

func (r *Repository) GetPermission(ctx context.Context, id uuid.UUID) (*role.Permission, error) {
	return r.getPermission(ctx, `SELECT id, name, description, resource, action, created_at
		FROM permissions WHERE id = ?`, id)
}

func (r *Repository) GetPermissionByPair(ctx context.Context, resource, action string) (*role.Permission, error) {
	return r.getPermission(ctx, `SELECT id, name, description, resource, action, created_at
		FROM permissions WHERE resource = ? AND action = ?`, resource, action)
}

func (r *Repository) getPermission(ctx context.Context, query string, args ...interface{}) (*role.Permission, error) {
	var m userDatamodel.Permission

	row := r.db.WithContext(ctx).Raw(query, args...).Row()
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Resource, &m.Action, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, role.ErrPermissionNotFound
		}
		return nil, err
	}
	return role.PermissionFromDataModel(&m), nil
}

func (r *Repository) ListPermissions(ctx context.Context) ([]role.Permission, error) {
	query := `SELECT id, name, description, resource, action, created_at
	          FROM permissions ORDER BY resource, action`

	return r.scanPermissions(ctx, query)
}

func (r *Repository) PermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]role.Permission, error) {
	query := `SELECT p.id, p.name, p.description, p.resource, p.action, p.created_at
	          FROM permissions p
	          JOIN role_permissions rp ON p.id = rp.permission_id
	          WHERE rp.role_id = ?
	          ORDER BY p.resource, p.action`

	return r.scanPermissions(ctx, query, roleID)
}

func (r *Repository) scanPermissions(ctx context.Context, query string, args ...interface{}) ([]role.Permission, error) {
	rows, err := r.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perms := []role.Permission{}
	for rows.Next() {
		var m userDatamodel.Permission
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Resource, &m.Action, &m.CreatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, *role.PermissionFromDataModel(&m))
	}
	return perms, rows.Err()
}

func (r *Repository) AttachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	var attached bool
	row := r.db.WithContext(ctx).Raw(
		`SELECT EXISTS(SELECT 1 FROM role_permissions WHERE role_id = ? AND permission_id = ?)`,
		roleID, permissionID).Row()
	if err := row.Scan(&attached); err != nil {
		return err
	}
	if attached {
		return nil
	}

	return r.db.WithContext(ctx).Exec(
		`INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?)`,
		roleID, permissionID).Error
}

func (r *Repository) DetachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM role_permissions WHERE role_id = ? AND permission_id = ?`,
		roleID, permissionID).Error
}
