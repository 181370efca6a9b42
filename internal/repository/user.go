package repository

import (
	"context"
	"errors"
	"time"

	"murmur/internal/cache"
	"murmur/internal/database"
	"murmur/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// Upsert inserts or refreshes the row keyed by ExternalID.
	Upsert(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, user *models.User, fields map[string]any) error
	SoftDelete(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// cachedUser carries the fields that models.User hides from JSON.
type cachedUser struct {
	models.User
	ExternalID string `json:"external_id"`
}

func (r *userRepository) cachedLookup(ctx context.Context, key string, notFound error, query func(*gorm.DB) *gorm.DB) (*models.User, error) {
	var entry cachedUser
	err := cache.Aside(ctx, key, &entry, cache.UserTTL, func() error {
		var user models.User
		if err := query(r.db.WithContext(ctx)).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound
			}
			return models.NewInternalError(err)
		}
		entry = cachedUser{User: user, ExternalID: user.ExternalID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	user := entry.User
	user.ExternalID = entry.ExternalID
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return r.cachedLookup(ctx, cache.UserKey(id), models.NewNotFoundError("User", id), func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id).Where("is_deleted = ?", false)
	})
}

func (r *userRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return r.cachedLookup(ctx, cache.UserExternalKey(externalID), models.NewNotFoundError("User", externalID), func(db *gorm.DB) *gorm.DB {
		return db.Where("external_id = ?", externalID).Where("is_deleted = ?", false)
	})
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).Where("is_deleted = ?", false).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Upsert(ctx context.Context, user *models.User) (err error) {
	ctx, done := instrument(ctx, "Upsert", "users")
	defer func() { done(err) }()

	db := r.db.WithContext(ctx)
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "display_name", "avatar_url", "is_deleted", "deleted_at", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.NewConflictError("Username is already taken")
		}
		return models.NewInternalError(err)
	}

	// ON CONFLICT does not report the surviving row on every driver.
	var stored models.User
	if err := db.Where("external_id = ?", user.ExternalID).First(&stored).Error; err != nil {
		return models.NewInternalError(err)
	}
	*user = stored
	cache.InvalidateUser(ctx, user.ID, user.ExternalID)
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).Where("is_deleted = ?", false).
		Updates(fields).Error
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.NewConflictError("Username is already taken")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID, user.ExternalID)
	return nil
}

func (r *userRepository) SoftDelete(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		UpdateColumns(map[string]any{"is_deleted": true, "deleted_at": now}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID, user.ExternalID)
	return nil
}
