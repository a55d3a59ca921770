package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/platformkit/user-management/internal/core/events"
)

// Repository is the persistence contract for user accounts and their
// role assignments.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, params ListUsersParams) ([]User, int64, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	RoleNames(ctx context.Context, userID uuid.UUID) ([]string, error)
	AssignRole(ctx context.Context, userID, roleID uuid.UUID) error
	RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error
	DeactivateInactiveSince(ctx context.Context, cutoff time.Time) (int64, error)
}

// PasswordHasher is satisfied by the auth service; the user module never
// touches bcrypt directly.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo   Repository
	hasher PasswordHasher
	bus    Publisher
	logger *slog.Logger
}

func NewService(repo Repository, hasher PasswordHasher, bus Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		hasher: hasher,
		bus:    bus,
		logger: logger,
	}
}

func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, dto.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email uniqueness: %w", err)
	}

	if _, err := s.repo.GetByUsername(ctx, dto.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check username uniqueness: %w", err)
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	u := &User{
		ID:           uuid.New(),
		Email:        dto.Email,
		Username:     dto.Username,
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  dto.IsSuperuser,
		IsVerified:   false,
		Roles:        []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created", "user_id", u.ID, "email", u.Email)

	if s.bus != nil {
		if err := s.bus.Publish(ctx, events.NewUserCreated(u.ID, u.Email)); err != nil {
			s.logger.Error("publish user.created failed", "user_id", u.ID, "error", err)
		}
	}

	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	roles, err := s.repo.RoleNames(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	u.Roles = roles

	return u, nil
}

func (s *Service) List(ctx context.Context, params ListUsersParams) (*PaginatedUsers, error) {
	params.Normalize()

	users, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return &PaginatedUsers{
		Users:   users,
		Total:   total,
		Page:    params.Page,
		PerPage: params.PerPage,
	}, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	wasActive := u.IsActive

	if dto.Email != nil && *dto.Email != u.Email {
		if _, err := s.repo.GetByEmail(ctx, *dto.Email); err == nil {
			return nil, ErrEmailTaken
		} else if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("check email uniqueness: %w", err)
		}
		u.Email = *dto.Email
	}
	if dto.Username != nil && *dto.Username != u.Username {
		if _, err := s.repo.GetByUsername(ctx, *dto.Username); err == nil {
			return nil, ErrUsernameTaken
		} else if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("check username uniqueness: %w", err)
		}
		u.Username = *dto.Username
	}
	if dto.FirstName != nil {
		u.FirstName = *dto.FirstName
	}
	if dto.LastName != nil {
		u.LastName = *dto.LastName
	}
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
	}
	if dto.IsVerified != nil {
		u.IsVerified = *dto.IsVerified
	}
	u.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if s.bus != nil && wasActive && !u.IsActive {
		if err := s.bus.Publish(ctx, events.NewUserDeactivated(u.ID, u.Email)); err != nil {
			s.logger.Error("publish user.deactivated failed", "user_id", u.ID, "error", err)
		}
	}

	return s.GetByID(ctx, id)
}

func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	u.PasswordHash = hash
	u.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, u); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.Info("password changed", "user_id", id)
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.Info("user deleted", "user_id", id, "email", u.Email)

	if s.bus != nil {
		if err := s.bus.Publish(ctx, events.NewUserDeleted(u.ID, u.Email)); err != nil {
			s.logger.Error("publish user.deleted failed", "user_id", u.ID, "error", err)
		}
	}

	return nil
}

// CleanupInactive deactivates accounts that have not signed in within
// the window. Accounts that never signed in age from their creation time.
func (s *Service) CleanupInactive(ctx context.Context, window time.Duration) (int64, error) {
	if window <= 0 {
		return 0, ValidationError{Field: "window", Message: "must be positive"}
	}

	cutoff := time.Now().Add(-window)
	count, err := s.repo.DeactivateInactiveSince(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deactivate inactive users: %w", err)
	}

	if count > 0 {
		s.logger.Info("deactivated inactive users", "count", count, "cutoff", cutoff)
	}
	return count, nil
}

func (s *Service) AssignRole(ctx context.Context, userID, roleID uuid.UUID) (*User, error) {
	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return nil, err
	}

	s.logger.Info("role assigned", "user_id", userID, "role_id", roleID)
	return s.GetByID(ctx, userID)
}

func (s *Service) RemoveRole(ctx context.Context, userID, roleID uuid.UUID) (*User, error) {
	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return nil, err
	}

	s.logger.Info("role removed", "user_id", userID, "role_id", roleID)
	return s.GetByID(ctx, userID)
}
