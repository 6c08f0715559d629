package server

import (
	"context"

	"github.com/Shonkurieta/ebookreader/internal/db/models"
	"github.com/Shonkurieta/ebookreader/internal/services/iam"
)

// identityService defines the exact IAM methods used by server handlers.
// iam.Service must satisfy it; the assertion below fails the build otherwise.
type identityService interface {
	// Token issuance triggers
	Register(ctx context.Context, in iam.RegisterInput) (*iam.AuthResult, error)
	Login(ctx context.Context, identifier, password string) (*iam.AuthResult, error)
	Refresh(ctx context.Context, tokenString string) (*iam.AuthResult, error)

	// Self-service
	GetUser(ctx context.Context, principalID int64) (*models.User, error)
	Rename(ctx context.Context, principalID int64, nickname string) (*iam.AuthResult, error)
	ChangePassword(ctx context.Context, principalID int64, oldPassword, newPassword string) error

	// Administration
	ListUsers(ctx context.Context) ([]models.User, error)
	SetRole(ctx context.Context, principalID int64, role string) (*models.User, error)
	DeleteUser(ctx context.Context, principalID int64) error
}

var _ identityService = (*iam.Service)(nil)
