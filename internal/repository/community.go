package repository

import (
	"context"
	"errors"

	"murmur/internal/database"
	"murmur/internal/models"

	"gorm.io/gorm"
)

// CommunityRepository persists communities. Membership changes go through
// the membership Toggle.
type CommunityRepository interface {
	// Create inserts the community and its owner membership.
	Create(ctx context.Context, community *models.Community) error
	Get(ctx context.Context, id uint) (*models.Community, error)
	Members() *Toggle[models.CommunityMember]
}

type communityRepository struct {
	db      *gorm.DB
	members *Toggle[models.CommunityMember]
}

func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db, members: NewMembershipToggle(db)}
}

func (r *communityRepository) Members() *Toggle[models.CommunityMember] {
	return r.members
}

func (r *communityRepository) Create(ctx context.Context, community *models.Community) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(community).Error; err != nil {
			return err
		}
		owner := models.CommunityMember{
			CommunityID: community.ID,
			UserID:      community.CreatorID,
			Role:        models.CommunityRoleOwner,
		}
		return tx.Create(&owner).Error
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.NewConflictError("Community slug is already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *communityRepository) Get(ctx context.Context, id uint) (*models.Community, error) {
	var c models.Community
	if err := r.db.WithContext(ctx).Where("id = ?", id).Where("is_deleted = ?", false).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Community", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &c, nil
}
