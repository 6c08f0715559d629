package iam

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Shonkurieta/ebookreader/internal/auth"
	"github.com/Shonkurieta/ebookreader/internal/db/models"
	"github.com/Shonkurieta/ebookreader/internal/repository"
)

// Service implements the token issuance triggers and account management.
type Service struct {
	users     repository.UserRepository
	codec     *auth.Codec
	validator *auth.Validator
	resolver  *RoleResolver
	logger    *logrus.Logger
}

// ServiceDependencies groups the collaborators of Service.
type ServiceDependencies struct {
	Users     repository.UserRepository
	Codec     *auth.Codec
	Validator *auth.Validator
	// Resolver is optional; when set its cache is invalidated on writes.
	Resolver *RoleResolver
	Logger   *logrus.Logger
}

// NewService validates deps and builds a Service.
func NewService(deps ServiceDependencies) (*Service, error) {
	if deps.Users == nil {
		return nil, errors.New("iam service requires a user repository")
	}
	if deps.Codec == nil {
		return nil, errors.New("iam service requires a token codec")
	}
	if deps.Validator == nil {
		deps.Validator = auth.NewValidator()
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	return &Service{
		users:     deps.Users,
		codec:     deps.Codec,
		validator: deps.Validator,
		resolver:  deps.Resolver,
		logger:    deps.Logger,
	}, nil
}

// Register creates a USER account and issues its first token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	user, err := s.CreateUser(ctx, CreateUserInput{
		Nickname: in.Nickname,
		Email:    in.Email,
		Password: in.Password,
		Role:     auth.RoleUser,
	})
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// CreateUser validates and stores a new account with the given role.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	nickname := strings.TrimSpace(in.Nickname)
	email := strings.TrimSpace(in.Email)
	role := auth.NormalizeRole(in.Role)
	if role == "" {
		role = auth.RoleUser
	}

	if nickname == "" {
		return nil, fmt.Errorf("%w: nickname is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, "<> ") {
		return nil, fmt.Errorf("%w: email %q is not valid", ErrInvalidInput, email)
	}
	if !auth.IsKnownRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}

	if err := s.ensureNicknameFree(ctx, nickname); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}

	user := &models.User{
		Nickname:     nickname,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// lost a race with a concurrent registration
			return nil, ErrNicknameTaken
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"event":        "iam.user_created",
		"principal_id": user.ID,
		"role":         user.Role,
	}).Info("user created")
	return user, nil
}

// Login authenticates by nickname or email. Every failure is reported as
// ErrInvalidCredentials so callers cannot probe which accounts exist.
func (s *Service) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByNickname(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) && strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

// Refresh re-issues a token for the subject of a still-fresh token, using the
// principal's current role from the store.
func (s *Service) Refresh(ctx context.Context, tokenString string) (*AuthResult, error) {
	parsed, err := s.codec.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Check(parsed); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, parsed.PrincipalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: principal %d no longer exists", auth.ErrPrincipalMismatch, parsed.PrincipalID)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := s.validator.CheckFor(parsed, user.ID); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// IssueToken mints a token for an existing account.
func (s *Service) IssueToken(ctx context.Context, principalID int64) (*AuthResult, error) {
	user, err := s.GetUser(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// GetUser loads one account.
func (s *Service) GetUser(ctx context.Context, principalID int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// Rename changes the identity claim of a principal and issues a token that
// carries the new nickname. Tokens naming the old nickname stay usable until
// they expire.
func (s *Service) Rename(ctx context.Context, principalID int64, nickname string) (*AuthResult, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, fmt.Errorf("%w: nickname cannot be empty", ErrInvalidInput)
	}

	user, err := s.GetUser(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if user.Nickname == nickname {
		return s.issue(user)
	}
	if err := s.ensureNicknameFree(ctx, nickname); err != nil {
		return nil, err
	}

	if err := s.users.SetNickname(ctx, principalID, nickname); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrNicknameTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	s.resolver.Invalidate(principalID)

	user.Nickname = nickname
	return s.issue(user)
}

// ChangePassword replaces the password after verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, principalID int64, oldPassword, newPassword string) error {
	user, err := s.GetUser(ctx, principalID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, oldPassword) {
		return ErrWrongPassword
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return err
	}
	if err := s.users.SetPasswordHash(ctx, principalID, hash); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	return nil
}

// SetRole changes a principal's primary role. Outstanding tokens keep the
// role they were issued with until they expire.
func (s *Service) SetRole(ctx context.Context, principalID int64, role string) (*models.User, error) {
	role = auth.NormalizeRole(role)
	if !auth.IsKnownRole(role) {
		return nil, fmt.Errorf("%w: role must be %s or %s", ErrInvalidInput, auth.RoleUser, auth.RoleAdmin)
	}

	user, err := s.GetUser(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}
	if user.Role == auth.RoleAdmin {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}

	if err := s.users.SetRole(ctx, principalID, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	s.resolver.Invalidate(principalID)

	s.logger.WithFields(logrus.Fields{
		"event":        "iam.role_changed",
		"principal_id": principalID,
		"from":         user.Role,
		"to":           role,
	}).Info("role changed")

	user.Role = role
	return user, nil
}

// DeleteUser removes an account, refusing to remove the last ADMIN.
func (s *Service) DeleteUser(ctx context.Context, principalID int64) error {
	user, err := s.GetUser(ctx, principalID)
	if err != nil {
		return err
	}
	if user.Role == auth.RoleAdmin {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return err
		}
	}

	if err := s.users.Delete(ctx, principalID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.resolver.Invalidate(principalID)

	s.logger.WithFields(logrus.Fields{
		"event":        "iam.user_deleted",
		"principal_id": principalID,
	}).Info("user deleted")
	return nil
}

func (s *Service) ensureNicknameFree(ctx context.Context, nickname string) error {
	_, err := s.users.GetByNickname(ctx, nickname)
	switch {
	case err == nil:
		return ErrNicknameTaken
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check nickname: %w", err)
	}
}

func (s *Service) ensureAnotherAdmin(ctx context.Context) error {
	admins, err := s.users.CountByRole(ctx, auth.RoleAdmin)
	if err != nil {
		return fmt.Errorf("count administrators: %w", err)
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *Service) issue(user *models.User) (*AuthResult, error) {
	token, err := s.codec.Issue(user.ID, user.Nickname, user.Roles())
	if err != nil {
		return nil, err
	}
	parsed, err := s.codec.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("re-read issued token: %w", err)
	}
	return &AuthResult{Token: token, ExpiresAt: parsed.ExpiresAt, User: *user}, nil
}
