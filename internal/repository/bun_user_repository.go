package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/Shonkurieta/ebookreader/internal/db/models"
)

// BunUserRepository implements UserRepository using Bun ORM
type BunUserRepository struct {
	db *bun.DB
}

// NewBunUserRepository creates a new Bun-based user repository
func NewBunUserRepository(db *bun.DB) *BunUserRepository {
	return &BunUserRepository{db: db}
}

// Create inserts a new user into the database
func (r *BunUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.NewInsert().
		Model(user).
		Returning("id").
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %q: %w", user.Nickname, ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their numeric ID
func (r *BunUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "id = ?", id, fmt.Sprintf("user %d", id))
}

// GetByNickname retrieves a user by their nickname
func (r *BunUserRepository) GetByNickname(ctx context.Context, nickname string) (*models.User, error) {
	return r.getOne(ctx, "nickname = ?", nickname, fmt.Sprintf("user with nickname %q", nickname))
}

// GetByEmail retrieves a user by their email
func (r *BunUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "LOWER(email) = LOWER(?)", email, fmt.Sprintf("user with email %q", email))
}

func (r *BunUserRepository) getOne(ctx context.Context, where string, arg any, what string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where(where, arg).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", what, err)
	}
	return user, nil
}

// List retrieves all users, oldest first
func (r *BunUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.NewSelect().
		Model(&users).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetNickname renames a user. Returns ErrConflict when the nickname is taken.
func (r *BunUserRepository) SetNickname(ctx context.Context, id int64, nickname string) error {
	err := r.setColumn(ctx, id, "nickname", nickname)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("nickname %q: %w", nickname, ErrConflict)
	}
	return err
}

// SetPasswordHash updates the stored bcrypt hash
func (r *BunUserRepository) SetPasswordHash(ctx context.Context, id int64, passwordHash string) error {
	return r.setColumn(ctx, id, "password_hash", passwordHash)
}

// SetRole replaces the user's primary role
func (r *BunUserRepository) SetRole(ctx context.Context, id int64, role string) error {
	return r.setColumn(ctx, id, "role", role)
}

func (r *BunUserRepository) setColumn(ctx context.Context, id int64, column, value string) error {
	result, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("? = ?", bun.Ident(column), value).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set user %s: %w", column, err)
	}
	return expectOneRow(result, id)
}

// Delete removes a user
func (r *BunUserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.NewDelete().
		Model((*models.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectOneRow(result, id)
}

// CountByRole counts users holding role
func (r *BunUserRepository) CountByRole(ctx context.Context, role string) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.User)(nil)).
		Where("role = ?", role).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return count, nil
}

func expectOneRow(result sql.Result, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	// modernc.org/sqlite reports constraint failures by message only
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
