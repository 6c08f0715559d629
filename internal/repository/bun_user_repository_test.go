package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/migrate"

	"github.com/Shonkurieta/ebookreader/internal/db/bunx"
	"github.com/Shonkurieta/ebookreader/internal/db/models"
	"github.com/Shonkurieta/ebookreader/internal/migrations"
)

// setupTestDB opens an in-memory SQLite database with the users table migrated
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return db
}

func newUser(nickname, role string) *models.User {
	return &models.User{
		Nickname:     nickname,
		Email:        nickname + "@example.com",
		PasswordHash: "$2a$10$placeholder",
		Role:         role,
	}
}

func TestBunUserRepository_CreateAndGet(t *testing.T) {
	repo := NewBunUserRepository(setupTestDB(t))
	ctx := context.Background()

	alice := newUser("alice", "USER")
	require.NoError(t, repo.Create(ctx, alice))
	require.NotZero(t, alice.ID)

	t.Run("by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Nickname)
		assert.Equal(t, "USER", got.Role)
		assert.NotZero(t, got.CreatedAt)
	})

	t.Run("by nickname", func(t *testing.T) {
		got, err := repo.GetByNickname(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
	})

	t.Run("by email is case insensitive", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.GetByID(ctx, alice.ID+100)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate nickname", func(t *testing.T) {
		dup := newUser("alice", "USER")
		dup.Email = "alice2@example.com"
		err := repo.Create(ctx, dup)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup := newUser("alice2", "USER")
		dup.Email = "alice@example.com"
		err := repo.Create(ctx, dup)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestBunUserRepository_Mutations(t *testing.T) {
	repo := NewBunUserRepository(setupTestDB(t))
	ctx := context.Background()

	alice := newUser("alice", "USER")
	bob := newUser("bob", "ADMIN")
	require.NoError(t, repo.Create(ctx, alice))
	require.NoError(t, repo.Create(ctx, bob))

	require.NoError(t, repo.SetNickname(ctx, alice.ID, "alicia"))
	got, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", got.Nickname)

	err = repo.SetNickname(ctx, alice.ID, "bob")
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, repo.SetPasswordHash(ctx, alice.ID, "new-hash"))
	got, err = repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	require.NoError(t, repo.SetRole(ctx, alice.ID, "ADMIN"))
	admins, err := repo.CountByRole(ctx, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, 2, admins)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, alice.ID, users[0].ID)

	require.NoError(t, repo.Delete(ctx, bob.ID))
	assert.ErrorIs(t, repo.Delete(ctx, bob.ID), ErrNotFound)
	assert.ErrorIs(t, repo.SetRole(ctx, bob.ID, "USER"), ErrNotFound)
}

func TestBunUserRepository_StoreFailure(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	repo := NewBunUserRepository(db)
	ctx := context.Background()

	t.Run("driver error is not reported as not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset by peer"))

		_, err := repo.GetByID(ctx, 7)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "connection reset by peer")
	})

	t.Run("empty result is not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id", "nickname"}))

		_, err := repo.GetByID(ctx, 7)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("count failure", func(t *testing.T) {
		mock.ExpectQuery("SELECT count").WillReturnError(errors.New("disk I/O error"))

		_, err := repo.CountByRole(ctx, "ADMIN")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "count users by role")
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
