package role

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

type CreateRoleDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (d *CreateRoleDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return ValidationError{Field: "name", Message: "is required"}
	}
	return nil
}

type UpdateRoleDTO struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func (d *UpdateRoleDTO) Validate() error {
	if d.Name != nil {
		*d.Name = strings.TrimSpace(*d.Name)
		if *d.Name == "" {
			return ValidationError{Field: "name", Message: "must not be empty"}
		}
	}
	return nil
}

type CreatePermissionDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
}

func (d *CreatePermissionDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	d.Resource = strings.TrimSpace(d.Resource)
	d.Action = strings.TrimSpace(d.Action)

	if d.Resource == "" {
		return ValidationError{Field: "resource", Message: "is required"}
	}
	if d.Action == "" {
		return ValidationError{Field: "action", Message: "is required"}
	}
	if d.Name == "" {
		d.Name = d.Resource + ":" + d.Action
	}
	return nil
}

type AttachPermissionDTO struct {
	PermissionID uuid.UUID `json:"permission_id"`
}

func (d *AttachPermissionDTO) Validate() error {
	if d.PermissionID == uuid.Nil {
		return ValidationError{Field: "permission_id", Message: "is required"}
	}
	return nil
}
