package database

import "murmur/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.PostMedia{},
		&models.Draft{},
		&models.DraftMedia{},
		&models.Like{},
		&models.Bookmark{},
		&models.Follow{},
		&models.Block{},
		&models.Community{},
		&models.CommunityMember{},
		&models.CommunityPost{},
	}
}
