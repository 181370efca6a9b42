package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ActiveUniqueIndex enforces at most one live row per pair in a soft-deleted
// relation table.
type ActiveUniqueIndex struct {
	Name    string
	Table   string
	Columns string
}

// ActiveUniqueIndexes lists the partial unique indexes of every toggle relation.
func ActiveUniqueIndexes() []ActiveUniqueIndex {
	return []ActiveUniqueIndex{
		{Name: "uq_likes_active", Table: "likes", Columns: "user_id, post_id"},
		{Name: "uq_bookmarks_active", Table: "bookmarks", Columns: "user_id, post_id"},
		{Name: "uq_follows_active", Table: "follows", Columns: "follower_id, following_id"},
		{Name: "uq_blocks_active", Table: "blocks", Columns: "blocker_id, blocked_id"},
		{Name: "uq_community_members_active", Table: "community_members", Columns: "community_id, user_id"},
	}
}

// EnsureActiveUniqueIndexes creates the partial unique indexes. The
// statement is valid on both Postgres and SQLite.
func EnsureActiveUniqueIndexes(ctx context.Context, db *gorm.DB) error {
	for _, idx := range ActiveUniqueIndexes() {
		stmt := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s) WHERE is_deleted = false",
			idx.Name, idx.Table, idx.Columns)
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index %s: %w", idx.Name, err)
		}
	}
	return nil
}

// MissingActiveUniqueIndexes returns the names of toggle indexes db lacks.
func MissingActiveUniqueIndexes(ctx context.Context, db *gorm.DB) ([]string, error) {
	m := db.WithContext(ctx).Migrator()
	var missing []string
	for _, idx := range ActiveUniqueIndexes() {
		if !m.HasTable(idx.Table) || !m.HasIndex(idx.Table, idx.Name) {
			missing = append(missing, idx.Name)
		}
	}
	return missing, nil
}

// AutoMigrate applies the GORM model schema plus the partial indexes.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return EnsureActiveUniqueIndexes(ctx, db)
}
