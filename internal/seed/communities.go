package seed

import (
	"errors"

	"murmur/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuiltInCommunity is a permanent public community.
type BuiltInCommunity struct {
	Name        string
	Slug        string
	Description string
}

// BuiltInCommunities defines the communities every environment starts with.
var BuiltInCommunities = []BuiltInCommunity{
	{Name: "Town Square", Slug: "town-square", Description: "General conversation."},
	{Name: "Announcements", Slug: "announcements", Description: "Platform news and updates."},
	{Name: "Help Desk", Slug: "help-desk", Description: "Questions and troubleshooting."},
	{Name: "Film Club", Slug: "film-club", Description: "Movies and series."},
	{Name: "Reading Room", Slug: "reading-room", Description: "Books and writing."},
	{Name: "Workbench", Slug: "workbench", Description: "Software development talk."},
}

// Communities upserts the built-in communities by slug and makes owner
// their owning member. Running it twice leaves one row per slug.
func Communities(db *gorm.DB, owner *models.User) ([]models.Community, error) {
	out := make([]models.Community, 0, len(BuiltInCommunities))
	for _, item := range BuiltInCommunities {
		var community models.Community
		err := db.Transaction(func(tx *gorm.DB) error {
			community = models.Community{
				Name:        item.Name,
				Slug:        item.Slug,
				Description: item.Description,
				CreatorID:   owner.ID,
			}

			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "description", "updated_at"}),
			}).Create(&community).Error; err != nil {
				return err
			}

			// The upsert does not report the id of an existing row on every driver.
			if err := tx.Where("slug = ?", item.Slug).First(&community).Error; err != nil {
				return err
			}

			return joinCommunity(tx, community.CreatorID, community.ID, models.CommunityRoleOwner)
		})
		if err != nil {
			return nil, err
		}
		out = append(out, community)
	}
	return out, nil
}

// joinCommunity adds an active membership unless one exists.
func joinCommunity(tx *gorm.DB, userID, communityID uint, role string) error {
	var existing models.CommunityMember
	err := tx.Where("community_id = ? AND user_id = ? AND is_deleted = ?", communityID, userID, false).
		First(&existing).Error
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}
	return tx.Create(&models.CommunityMember{CommunityID: communityID, UserID: userID, Role: role}).Error
}
