package repository

import (
	"context"
	"testing"

	"tribunal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.ModerationLog{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, email string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: email, Password: "hashed", Role: models.RoleUser}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestUserRepository_GetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seeded := seedUser(t, db, "testuser", "test@example.com")

	t.Run("found", func(t *testing.T) {
		user, err := repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, "testuser", user.Username)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 9999)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "someone", "someone@example.com")

	user, err := repo.GetByEmail(ctx, "someone@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "someone", user.Username)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing, "missing email returns nil without error")
}

func TestUserRepository_GetByUsername(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "knownname", "known@example.com")

	user, err := repo.GetByUsername(ctx, "knownname")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "known@example.com", user.Email)

	missing, err := repo.GetByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing, "missing username returns nil without error")
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "dup", Email: "dup@example.com", Password: "x"}))

	err := repo.Create(ctx, &models.User{Username: "dup", Email: "dup@example.com", Password: "x"})
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestUserRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "taken", "taken@example.com")
	user := seedUser(t, db, "editable", "editable@example.com")

	t.Run("persists field changes", func(t *testing.T) {
		user.Bio = "corrected bio"
		require.NoError(t, repo.Update(ctx, user))

		var got models.User
		require.NoError(t, db.First(&got, user.ID).Error)
		assert.Equal(t, "corrected bio", got.Bio)
	})

	t.Run("duplicate username", func(t *testing.T) {
		user.Username = "taken"
		err := repo.Update(ctx, user)
		assert.True(t, models.HasCode(err, models.CodeValidation))
	})
}

func TestUserRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice", "alice@example.com")
	seedUser(t, db, "bob", "bob@example.com")
	seedUser(t, db, "malice", "malice@example.com")

	t.Run("no query returns everyone", func(t *testing.T) {
		users, total, err := repo.List(ctx, "", 10, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, users, 3)
	})

	t.Run("case-insensitive search", func(t *testing.T) {
		users, total, err := repo.List(ctx, "ALICE", 10, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		require.Len(t, users, 2)
		assert.Equal(t, "alice", users[0].Username)
		assert.Equal(t, "malice", users[1].Username)
	})

	t.Run("pagination", func(t *testing.T) {
		users, total, err := repo.List(ctx, "", 2, 2)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, users, 1)
		assert.Equal(t, "malice", users[0].Username)
	})
}
