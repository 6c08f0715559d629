package repository

import (
	"context"
	"errors"

	"github.com/Shonkurieta/ebookreader/internal/db/models"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique nickname or email is already taken.
	ErrConflict = errors.New("conflict")
)

// UserRepository is the Credential Store collaborator.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByNickname(ctx context.Context, nickname string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	SetNickname(ctx context.Context, id int64, nickname string) error
	SetPasswordHash(ctx context.Context, id int64, passwordHash string) error
	SetRole(ctx context.Context, id int64, role string) error
	Delete(ctx context.Context, id int64) error
	CountByRole(ctx context.Context, role string) (int, error)
}
