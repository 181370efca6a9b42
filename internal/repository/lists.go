package repository

import (
	"context"
	"time"

	"murmur/internal/models"
	"murmur/internal/pagination"

	"gorm.io/gorm"
)

// PostRef is one row of a relation-keyed post listing. CursorID is the
// relation row id the page is ordered by.
type PostRef struct {
	CursorID uint
	PostID   uint
}

// UserRef is one row of a relation-keyed user listing.
type UserRef struct {
	CursorID  uint
	CreatedAt time.Time
	User      models.User `gorm:"embedded;embeddedPrefix:u_"`
}

// ListRepository serves the viewer-relative listings.
type ListRepository interface {
	Bookmarked(ctx context.Context, userID uint, ex *Exclusions, page pagination.Params) ([]PostRef, error)
	Liked(ctx context.Context, userID uint, ex *Exclusions, page pagination.Params) ([]PostRef, error)
	Followers(ctx context.Context, userID uint, ex *Exclusions, page pagination.Params) ([]UserRef, error)
	Following(ctx context.Context, userID uint, ex *Exclusions, page pagination.Params) ([]UserRef, error)
	Blocked(ctx context.Context, userID uint, page pagination.Params) ([]UserRef, error)
	PostsByIDs(ctx context.Context, ids []uint) (map[uint]models.Post, error)
}

type listRepository struct {
	db *gorm.DB
}

func NewListRepository(db *gorm.DB) ListRepository {
	return &listRepository{db: db}
}

func (r *listRepository) postRefs(ctx context.Context, model any, table string, userID uint, ex *Exclusions, page pagination.Params) (refs []PostRef, err error) {
	ctx, done := instrument(ctx, "List", table)
	defer func() { done(err) }()

	err = r.db.WithContext(ctx).Model(model).
		Select(table+".id AS cursor_id, "+table+".post_id AS post_id").
		Joins("JOIN posts ON posts.id = "+table+".post_id").
		Where(table+".user_id = ?", userID).
		Scopes(active(table), visiblePosts, ex.Scope("posts.user_id", "")).
		Scopes(page.Scope(table + ".id")).
		Scan(&refs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return refs, nil
}

func (r *listRepository) Bookmarked(ctx context.Context, userID uint, ex *Exclusions, page pagination.Params) ([]PostRef, error) {
	return r.postRefs(ctx, &models.Bookmark{}, "bookmarks", userID, ex, page)
}

func (r *listRepository) Liked(ctx context.Context, userID uint, ex *Exclusions, page pagination.Params) ([]PostRef, error) {
	return r.postRefs(ctx, &models.Like{}, "likes", userID, ex, page)
}

const userRefColumns = "users.id AS u_id, users.username AS u_username, users.display_name AS u_display_name, " +
	"users.bio AS u_bio, users.avatar_url AS u_avatar_url, users.is_banned AS u_is_banned"

func (r *listRepository) userRefs(ctx context.Context, model any, table, keyCol, joinCol string, userID uint, ex *Exclusions, page pagination.Params) (refs []UserRef, err error) {
	ctx, done := instrument(ctx, "List", table)
	defer func() { done(err) }()

	err = r.db.WithContext(ctx).Model(model).
		Select(table+".id AS cursor_id, "+table+".created_at AS created_at, "+userRefColumns).
		Joins("JOIN users ON users.id = "+table+"."+joinCol).
		Where(table+"."+keyCol+" = ?", userID).
		Where("users.is_deleted = ?", false).
		Scopes(active(table), ex.Scope("users.id", "")).
		Scopes(page.Scope(table + ".id")).
		Scan(&refs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return refs, nil
}

func (r *listRepository) Followers(ctx context.Context, userID uint, ex *Exclusions, page pagination.Params) ([]UserRef, error) {
	return r.userRefs(ctx, &models.Follow{}, "follows", "following_id", "follower_id", userID, ex, page)
}

func (r *listRepository) Following(ctx context.Context, userID uint, ex *Exclusions, page pagination.Params) ([]UserRef, error) {
	return r.userRefs(ctx, &models.Follow{}, "follows", "follower_id", "following_id", userID, ex, page)
}

func (r *listRepository) Blocked(ctx context.Context, userID uint, page pagination.Params) ([]UserRef, error) {
	return r.userRefs(ctx, &models.Block{}, "blocks", "blocker_id", "blocked_id", userID, nil, page)
}

func (r *listRepository) PostsByIDs(ctx context.Context, ids []uint) (map[uint]models.Post, error) {
	return postsByIDs(ctx, r.db, ids)
}
