// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"murmur/internal/database"
	"murmur/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database. A single connection
// keeps every statement on the same in-memory schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := database.GormConfig()
	cfg.Logger = logger.Default.LogMode(logger.Silent)
	db, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(context.Background(), db))
	return db
}

// CreateUser inserts an active user with a random external id.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		ExternalID:  "user_" + gofakeit.UUID(),
		Username:    username,
		DisplayName: gofakeit.Name(),
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreatePost inserts an original post.
func CreatePost(t *testing.T, db *gorm.DB, userID uint, content string) *models.Post {
	t.Helper()
	return CreatePostOfKind(t, db, userID, content, models.Original())
}

// CreatePostOfKind inserts a post of the given kind.
func CreatePostOfKind(t *testing.T, db *gorm.DB, userID uint, content string, kind models.PostKind) *models.Post {
	t.Helper()
	p := &models.Post{UserID: userID, Content: content}
	p.SetKind(kind)
	require.NoError(t, db.Omit("User").Create(p).Error)
	return p
}

// CreatePosts inserts n original posts with generated text.
func CreatePosts(t *testing.T, db *gorm.DB, userID uint, n int) []*models.Post {
	t.Helper()
	out := make([]*models.Post, n)
	for i := range out {
		out[i] = CreatePost(t, db, userID, fmt.Sprintf("%d %s", i, gofakeit.Sentence(6)))
	}
	return out
}

// Block inserts an active block row.
func Block(t *testing.T, db *gorm.DB, blockerID, blockedID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.Block{BlockerID: blockerID, BlockedID: blockedID}).Error)
}

// Ban marks a user banned.
func Ban(t *testing.T, db *gorm.DB, userID uint) {
	t.Helper()
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", userID).Update("is_banned", true).Error)
}
