package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Service composes credential verification, token issuance/verification
// and permission evaluation. It is the only auth surface the transport
// layer talks to.
type Service struct {
	users      UserStore
	evaluator  *Evaluator
	codec      *TokenCodec
	bcryptCost int
	logger     *slog.Logger
}

func NewService(users UserStore, roles RolePermissionStore, codec *TokenCodec, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		users:      users,
		evaluator:  NewEvaluator(roles, logger),
		codec:      codec,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// authenticate resolves email+password to a user. Unknown email, wrong
// password and inactive account all come back as ErrInvalidCredentials;
// surfacing the difference would let callers enumerate accounts. Store
// I/O failures stay distinct.
func (s *Service) authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: lookup user: %v", ErrStoreUnavailable, err)
	}
	if !user.IsActive {
		s.logger.InfoContext(ctx, "login rejected: inactive account", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login verifies credentials and mints one access and one refresh token
// keyed to the user id. ExpiresIn reports the access token ttl.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	user, err := s.authenticate(ctx, dto.Email, dto.Password)
	if err != nil {
		return AuthTokens{}, err
	}

	subject := user.ID.String()

	accessToken, err := s.codec.IssueAccess(subject)
	if err != nil {
		return AuthTokens{}, err
	}
	refreshToken, err := s.codec.IssueRefresh(subject)
	if err != nil {
		return AuthTokens{}, err
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    ExpiresIn(s.codec.AccessTTL()),
	}, nil
}

// Refresh validates a refresh token and mints a fresh access token. The
// subject is re-resolved against the user store so an account
// deactivated since issuance cannot keep refreshing. The presented
// refresh token is not rotated; it stays valid until its own expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthTokens, error) {
	user, err := s.resolveSubject(ctx, refreshToken, TokenKindRefresh)
	if err != nil {
		return AuthTokens{}, err
	}

	accessToken, err := s.codec.IssueAccess(user.ID.String())
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken: accessToken,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   ExpiresIn(s.codec.AccessTTL()),
	}, nil
}

// CurrentUser resolves an access token to its live user record.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	return s.resolveSubject(ctx, accessToken, TokenKindAccess)
}

// Authorize answers allow / deny / invalid-token for one request:
// ErrInvalidToken for a bad token or dead subject, ErrPermissionDenied
// for a valid identity without the permission, the user on allow.
func (s *Service) Authorize(ctx context.Context, accessToken, resource, action string) (*User, error) {
	user, err := s.resolveSubject(ctx, accessToken, TokenKindAccess)
	if err != nil {
		return nil, err
	}

	allowed, err := s.evaluator.Check(ctx, user, resource, action)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.logger.WarnContext(ctx, "access denied",
			"user_id", user.ID,
			"resource", resource,
			"action", action)
		return nil, ErrPermissionDenied
	}
	return user, nil
}

// CheckPermission exposes the evaluator for callers that already hold a
// resolved user (route guards after the auth middleware).
func (s *Service) CheckPermission(ctx context.Context, user *User, resource, action string) (bool, error) {
	return s.evaluator.Check(ctx, user, resource, action)
}

// HashPassword hashes with the configured bcrypt cost; used by the user
// module when creating accounts or changing passwords.
func (s *Service) HashPassword(password string) (string, error) {
	return HashPassword(password, s.bcryptCost)
}

// resolveSubject verifies the token for the expected kind and loads the
// subject from the store. A vanished or deactivated subject surfaces as
// ErrInvalidToken, indistinguishable from a bad token.
func (s *Service) resolveSubject(ctx context.Context, token string, kind TokenKind) (*User, error) {
	claims, err := s.codec.Verify(token, kind)
	if err != nil {
		return nil, ErrInvalidToken
	}

	subjectID, err := claims.SubjectID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: resolve subject: %v", ErrStoreUnavailable, err)
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}
	return user, nil
}
