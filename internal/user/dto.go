package user

import (
	"strings"

	"github.com/google/uuid"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

type CreateUserDTO struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsSuperuser bool   `json:"is_superuser"`
}

func (d *CreateUserDTO) Validate() error {
	d.Email = strings.TrimSpace(strings.ToLower(d.Email))
	d.Username = strings.TrimSpace(d.Username)

	if d.Email == "" || !strings.Contains(d.Email, "@") {
		return ValidationError{Field: "email", Message: "valid email is required"}
	}
	if len(d.Username) < 3 {
		return ValidationError{Field: "username", Message: "must be at least 3 characters"}
	}
	if len(d.Password) < 8 {
		return ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}
	return nil
}

// UpdateUserDTO uses pointers so absent fields are left untouched.
type UpdateUserDTO struct {
	Email      *string `json:"email,omitempty"`
	Username   *string `json:"username,omitempty"`
	FirstName  *string `json:"first_name,omitempty"`
	LastName   *string `json:"last_name,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
	IsVerified *bool   `json:"is_verified,omitempty"`
}

func (d *UpdateUserDTO) Validate() error {
	if d.Email != nil {
		*d.Email = strings.TrimSpace(strings.ToLower(*d.Email))
		if *d.Email == "" || !strings.Contains(*d.Email, "@") {
			return ValidationError{Field: "email", Message: "valid email is required"}
		}
	}
	if d.Username != nil {
		*d.Username = strings.TrimSpace(*d.Username)
		if len(*d.Username) < 3 {
			return ValidationError{Field: "username", Message: "must be at least 3 characters"}
		}
	}
	return nil
}

type ChangePasswordDTO struct {
	Password string `json:"password"`
}

func (d *ChangePasswordDTO) Validate() error {
	if len(d.Password) < 8 {
		return ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}
	return nil
}

type AssignRoleDTO struct {
	RoleID uuid.UUID `json:"role_id"`
}

func (d *AssignRoleDTO) Validate() error {
	if d.RoleID == uuid.Nil {
		return ValidationError{Field: "role_id", Message: "is required"}
	}
	return nil
}

type ListUsersParams struct {
	Page    int
	PerPage int
	Search  string
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 || p.PerPage > 100 {
		p.PerPage = 20
	}
	p.Search = strings.TrimSpace(p.Search)
}

func (p ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

type PaginatedUsers struct {
	Users   []User `json:"users"`
	Total   int64  `json:"total"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}
