package role

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RepositoryAPI is the persistence contract for roles, permissions and
// the grants linking them.
type RepositoryAPI interface {
	CreateRole(ctx context.Context, r *Role) error
	GetRole(ctx context.Context, id uuid.UUID) (*Role, error)
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	UpdateRole(ctx context.Context, r *Role) error
	DeleteRole(ctx context.Context, id uuid.UUID) error
	AssignedUserCount(ctx context.Context, roleID uuid.UUID) (int64, error)

	CreatePermission(ctx context.Context, p *Permission) error
	GetPermission(ctx context.Context, id uuid.UUID) (*Permission, error)
	GetPermissionByPair(ctx context.Context, resource, action string) (*Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	PermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]Permission, error)

	AttachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error
	DetachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) CreateRole(ctx context.Context, dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetRoleByName(ctx, dto.Name); err == nil {
		return nil, ErrNameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check role name: %w", err)
	}

	now := time.Now()
	r := &Role{
		ID:          uuid.New(),
		Name:        dto.Name,
		Description: dto.Description,
		IsActive:    true,
		Permissions: []Permission{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateRole(ctx, r); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.logger.Info("role created", "role_id", r.ID, "name", r.Name)
	return r, nil
}

func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	r, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}

	perms, err := s.repo.PermissionsForRole(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}
	r.Permissions = perms

	return r, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	for i := range roles {
		perms, err := s.repo.PermissionsForRole(ctx, roles[i].ID)
		if err != nil {
			return nil, fmt.Errorf("resolve permissions for role %q: %w", roles[i].Name, err)
		}
		roles[i].Permissions = perms
	}

	return roles, nil
}

func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, dto UpdateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	r, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil && *dto.Name != r.Name {
		if _, err := s.repo.GetRoleByName(ctx, *dto.Name); err == nil {
			return nil, ErrNameTaken
		} else if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("check role name: %w", err)
		}
		r.Name = *dto.Name
	}
	if dto.Description != nil {
		r.Description = *dto.Description
	}
	if dto.IsActive != nil {
		r.IsActive = *dto.IsActive
	}
	r.UpdatedAt = time.Now()

	if err := s.repo.UpdateRole(ctx, r); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	return s.GetRole(ctx, id)
}

// DeleteRole refuses to remove a role that still has assignees; the
// grants are removed with the role.
func (s *Service) DeleteRole(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetRole(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.AssignedUserCount(ctx, id)
	if err != nil {
		return fmt.Errorf("count assignees: %w", err)
	}
	if count > 0 {
		return ErrRoleInUse
	}

	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	s.logger.Info("role deleted", "role_id", id)
	return nil
}

func (s *Service) CreatePermission(ctx context.Context, dto CreatePermissionDTO) (*Permission, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPermissionByPair(ctx, dto.Resource, dto.Action); err == nil {
		return nil, ErrPermissionDuplicate
	} else if !errors.Is(err, ErrPermissionNotFound) {
		return nil, fmt.Errorf("check permission pair: %w", err)
	}

	p := &Permission{
		ID:          uuid.New(),
		Name:        dto.Name,
		Description: dto.Description,
		Resource:    dto.Resource,
		Action:      dto.Action,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.CreatePermission(ctx, p); err != nil {
		return nil, fmt.Errorf("create permission: %w", err)
	}

	s.logger.Info("permission created", "permission_id", p.ID, "resource", p.Resource, "action", p.Action)
	return p, nil
}

func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return perms, nil
}

func (s *Service) AttachPermission(ctx context.Context, roleID, permissionID uuid.UUID) (*Role, error) {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetPermission(ctx, permissionID); err != nil {
		return nil, err
	}

	if err := s.repo.AttachPermission(ctx, roleID, permissionID); err != nil {
		return nil, fmt.Errorf("attach permission: %w", err)
	}

	s.logger.Info("permission attached", "role_id", roleID, "permission_id", permissionID)
	return s.GetRole(ctx, roleID)
}

func (s *Service) DetachPermission(ctx context.Context, roleID, permissionID uuid.UUID) (*Role, error) {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return nil, err
	}

	if err := s.repo.DetachPermission(ctx, roleID, permissionID); err != nil {
		return nil, fmt.Errorf("detach permission: %w", err)
	}

	s.logger.Info("permission detached", "role_id", roleID, "permission_id", permissionID)
	return s.GetRole(ctx, roleID)
}
