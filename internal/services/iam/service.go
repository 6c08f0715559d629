package iam

import (
	"errors"
	"time"

	"github.com/Shonkurieta/ebookreader/internal/db/models"
)

// Errors returned by Service. Handlers map them onto HTTP statuses.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNicknameTaken      = errors.New("nickname already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWrongPassword      = errors.New("old password is incorrect")
	ErrUserNotFound       = errors.New("user not found")
	ErrLastAdmin          = errors.New("cannot remove the last administrator")
)

// RegisterInput carries a self-service registration.
type RegisterInput struct {
	Nickname string
	Email    string
	Password string
}

// CreateUserInput is the administrative variant of RegisterInput.
type CreateUserInput struct {
	Nickname string
	Email    string
	Password string
	Role     string
}

// AuthResult is returned by every token issuance trigger.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}
