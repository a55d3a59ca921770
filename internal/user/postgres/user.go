package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	userDatamodel "github.com/platformkit/user-management/internal/core/datamodel/user"
	"github.com/platformkit/user-management/internal/user"
)

const userColumns = `id, email, username, first_name, last_name, password_hash,
	is_active, is_superuser, is_verified, last_login, created_at, updated_at`

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Create(ctx context.Context, u *user.User) error {
	m := user.ToDataModel(u)

	query := `INSERT INTO users (id, email, username, first_name, last_name, password_hash,
		is_active, is_superuser, is_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	return r.db.WithContext(ctx).Exec(query,
		m.ID, m.Email, m.Username, m.FirstName, m.LastName, m.PasswordHash,
		m.IsActive, m.IsSuperuser, m.IsVerified, m.CreatedAt, m.UpdatedAt).Error
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *Repository) getUser(ctx context.Context, query string, arg interface{}) (*user.User, error) {
	row := r.db.WithContext(ctx).Raw(query, arg).Row()

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *Repository) List(ctx context.Context, params user.ListUsersParams) ([]user.User, int64, error) {
	where := ""
	args := []interface{}{}
	if params.Search != "" {
		where = ` WHERE email LIKE ? OR username LIKE ? OR first_name LIKE ? OR last_name LIKE ?`
		pattern := "%" + params.Search + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}

	var total int64
	countRow := r.db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM users`+where, args...).Row()
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, params.PerPage, params.Offset())

	rows, err := r.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, u *user.User) error {
	m := user.ToDataModel(u)

	query := `UPDATE users SET email = ?, username = ?, first_name = ?, last_name = ?,
		password_hash = ?, is_active = ?, is_superuser = ?, is_verified = ?,
		last_login = ?, updated_at = ?
		WHERE id = ?`

	result := r.db.WithContext(ctx).Exec(query,
		m.Email, m.Username, m.FirstName, m.LastName,
		m.PasswordHash, m.IsActive, m.IsSuperuser, m.IsVerified,
		m.LastLogin, m.UpdatedAt, m.ID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	// assignments first, then the row; same transaction so a failure
	// leaves both in place
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM user_roles WHERE user_id = ?`, id).Error; err != nil {
			return err
		}

		result := tx.Exec(`DELETE FROM users WHERE id = ?`, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

// DeactivateInactiveSince flips is_active off for accounts whose last
// sign-in (or creation, when they never signed in) predates the cutoff.
func (r *Repository) DeactivateInactiveSince(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE users SET is_active = ?, updated_at = ?
		WHERE is_active = ? AND COALESCE(last_login, created_at) < ?`

	result := r.db.WithContext(ctx).Exec(query, false, time.Now(), true, cutoff)
	return result.RowsAffected, result.Error
}

func (r *Repository) RoleNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `SELECT r.name
	          FROM roles r
	          JOIN user_roles ur ON r.id = ur.role_id
	          WHERE ur.user_id = ? AND r.is_active = true
	          ORDER BY r.name`

	rows, err := r.db.WithContext(ctx).Raw(query, userID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *Repository) AssignRole(ctx context.Context, userID, roleID uuid.UUID) error {
	var exists bool
	row := r.db.WithContext(ctx).Raw(`SELECT EXISTS(SELECT 1 FROM roles WHERE id = ?)`, roleID).Row()
	if err := row.Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return user.ErrRoleNotFound
	}

	var assigned bool
	row = r.db.WithContext(ctx).Raw(
		`SELECT EXISTS(SELECT 1 FROM user_roles WHERE user_id = ? AND role_id = ?)`, userID, roleID).Row()
	if err := row.Scan(&assigned); err != nil {
		return err
	}
	if assigned {
		return nil
	}

	return r.db.WithContext(ctx).Exec(
		`INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)`, userID, roleID).Error
}

func (r *Repository) RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM user_roles WHERE user_id = ? AND role_id = ?`, userID, roleID).Error
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*user.User, error) {
	var m userDatamodel.User
	if err := row.Scan(&m.ID, &m.Email, &m.Username, &m.FirstName, &m.LastName, &m.PasswordHash,
		&m.IsActive, &m.IsSuperuser, &m.IsVerified, &m.LastLogin, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return user.FromDataModel(&m), nil
}
