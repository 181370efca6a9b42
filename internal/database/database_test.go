package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"murmur/internal/config"
	"murmur/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), GormConfig())
	require.NoError(t, err)
	require.NoError(t, configurePool(db, &config.Config{DBDriver: "sqlite"}))
	require.NoError(t, AutoMigrate(context.Background(), db))
	return db
}

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBDriver:                 "postgres",
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestActiveUniqueIndex_AllowsOneLiveRowPerPair(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	user := models.User{ExternalID: "ext_1", Username: "alice"}
	require.NoError(t, db.Create(&user).Error)
	post := models.Post{UserID: user.ID, Content: "hello", PostType: models.PostOriginal}
	require.NoError(t, db.Create(&post).Error)

	first := models.Like{UserID: user.ID, PostID: post.ID}
	require.NoError(t, db.WithContext(ctx).Create(&first).Error)

	dup := models.Like{UserID: user.ID, PostID: post.ID}
	err := db.WithContext(ctx).Create(&dup).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err), "got %v", err)

	now := time.Now()
	require.NoError(t, db.Model(&models.Like{}).Where("id = ?", first.ID).
		UpdateColumns(map[string]interface{}{"is_deleted": true, "deleted_at": now}).Error)

	again := models.Like{UserID: user.ID, PostID: post.ID}
	require.NoError(t, db.WithContext(ctx).Create(&again).Error)
	assert.NotEqual(t, first.ID, again.ID)

	var total int64
	require.NoError(t, db.Model(&models.Like{}).Where("user_id = ? AND post_id = ?", user.ID, post.ID).Count(&total).Error)
	assert.Equal(t, int64(2), total)
}

func TestPostBeforeSaveRejectsTwoParents(t *testing.T) {
	db := openSQLite(t)
	user := models.User{ExternalID: "ext_1", Username: "alice"}
	require.NoError(t, db.Create(&user).Error)

	one, two := uint(1), uint(2)
	bad := models.Post{UserID: user.ID, Content: "x", PostType: models.PostReply, InReplyToPostID: &one, QuoteOfPostID: &two}
	assert.Error(t, db.Create(&bad).Error)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
}

func TestPlanSchema(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"hybrid development", config.Config{Env: "development", DBDriver: "postgres"}, true, true, false},
		{"hybrid production", config.Config{Env: "production", DBDriver: "postgres"}, true, false, false},
		{"hybrid staging", config.Config{Env: "Staging", DBDriver: "postgres", DBSchemaMode: " HYBRID "}, true, false, false},
		{"sql only", config.Config{Env: "development", DBDriver: "postgres", DBSchemaMode: "sql"}, true, false, false},
		{"auto in production refused", config.Config{Env: "production", DBDriver: "postgres", DBSchemaMode: "auto"}, false, false, true},
		{"auto in production allowed", config.Config{Env: "production", DBDriver: "postgres", DBSchemaMode: "auto", DBAutoMigrateAllowDestruct: true}, false, true, false},
		{"sqlite always auto", config.Config{Env: "production", DBDriver: "sqlite", DBSchemaMode: "sql"}, false, true, false},
		{"unknown mode", config.Config{Env: "development", DBDriver: "postgres", DBSchemaMode: "magic"}, false, false, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanSchema(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, plan.Goose)
			assert.Equal(t, tt.wantAuto, plan.AutoMigrate)
		})
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrationFS.ReadDir(migrationDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "00001_init.sql", entries[0].Name())
}

func TestSchemaPlan_StatusReportsMissingIndexes(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), GormConfig())
	require.NoError(t, err)
	require.NoError(t, configurePool(db, &config.Config{DBDriver: "sqlite"}))
	ctx := context.Background()

	plan, err := PlanSchema(&config.Config{Env: "test", DBDriver: "sqlite"})
	require.NoError(t, err)
	assert.Equal(t, SchemaModeHybrid, plan.Mode)

	status, err := plan.Status(ctx, db)
	require.NoError(t, err)
	assert.Len(t, status.MissingIndexes, len(ActiveUniqueIndexes()))
	assert.Zero(t, status.AppliedVersion)
	assert.Empty(t, status.PendingMigrations)

	require.NoError(t, plan.Apply(ctx, db))
	status, err = plan.Status(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, status.MissingIndexes)

	require.NoError(t, db.Exec("DROP INDEX uq_follows_active").Error)
	status, err = plan.Status(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"uq_follows_active"}, status.MissingIndexes)
}
