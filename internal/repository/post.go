package repository

import (
	"context"
	"errors"
	"time"

	"murmur/internal/models"
	"murmur/internal/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeedQuery selects a page of the general feed.
type FeedQuery struct {
	Exclusions *Exclusions
	Page       pagination.Params
	AuthorID   *uint
	PostType   *models.PostType
}

// PostRepository defines the interface for post data operations.
type PostRepository interface {
	// Create inserts the post, its media and the optional community link
	// in one transaction.
	Create(ctx context.Context, post *models.Post, media []models.MediaFields, communityID *uint) error
	// Get returns a non-deleted post with its author, hidden or not.
	Get(ctx context.Context, id uint) (*models.Post, error)
	// SoftDelete marks the post and its media deleted and returns the
	// media URLs that were active.
	SoftDelete(ctx context.Context, id uint) ([]string, error)
	Feed(ctx context.Context, q FeedQuery) ([]models.Post, error)
	CountFeed(ctx context.Context, q FeedQuery) (int64, error)
	RepliesBy(ctx context.Context, userID uint, ex *Exclusions, page pagination.Params) ([]models.Post, error)
	CommunityFeed(ctx context.Context, communityID uint, ex *Exclusions, page pagination.Params) ([]models.Post, error)
	ActiveRepost(ctx context.Context, userID, targetID uint) (*models.Post, error)
	CommunityOf(ctx context.Context, postID uint) (*uint, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post, media []models.MediaFields, communityID *uint) (err error) {
	ctx, done := instrument(ctx, "Create", "posts")
	defer func() { done(err) }()

	post.MediaCount = len(media)
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return err
		}
		if len(media) > 0 {
			rows := make([]models.PostMedia, len(media))
			for i, m := range media {
				rows[i] = models.PostMedia{PostID: post.ID, MediaFields: m}
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		if communityID != nil {
			link := models.CommunityPost{CommunityID: *communityID, PostID: post.ID}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Get(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("posts.id = ?", id).
		Scopes(active("posts")).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) SoftDelete(ctx context.Context, id uint) (urls []string, err error) {
	ctx, done := instrument(ctx, "SoftDelete", "posts")
	defer func() { done(err) }()

	now := time.Now().UTC()
	gone := map[string]any{"is_deleted": true, "deleted_at": now}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).
			Where("id = ?", id).Where("is_deleted = ?", false).
			UpdateColumns(gone)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		if err := tx.Model(&models.PostMedia{}).
			Where("post_id = ?", id).Where("is_deleted = ?", false).
			Pluck("url", &urls).Error; err != nil {
			return err
		}
		return tx.Model(&models.PostMedia{}).
			Where("post_id = ?", id).Where("is_deleted = ?", false).
			UpdateColumns(gone).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}
	return urls, nil
}

func (r *postRepository) feedQuery(ctx context.Context, q FeedQuery) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&models.Post{}).
		Scopes(visiblePosts, q.Exclusions.Scope("posts.user_id", "posts.id"))
	if q.AuthorID != nil {
		db = db.Where("posts.user_id = ?", *q.AuthorID)
	}
	if q.PostType != nil {
		db = db.Where("posts.post_type = ?", *q.PostType)
	}
	return db
}

func (r *postRepository) Feed(ctx context.Context, q FeedQuery) (posts []models.Post, err error) {
	ctx, done := instrument(ctx, "Feed", "posts")
	defer func() { done(err) }()

	if err := r.feedQuery(ctx, q).Preload("User").Scopes(q.Page.Scope("posts.id")).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) CountFeed(ctx context.Context, q FeedQuery) (int64, error) {
	var n int64
	if err := r.feedQuery(ctx, q).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *postRepository) RepliesBy(ctx context.Context, userID uint, ex *Exclusions, page pagination.Params) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Preload("User").
		Scopes(visiblePosts, ex.Scope("posts.user_id", "posts.id")).
		Where("posts.user_id = ?", userID).
		Where("posts.post_type = ?", models.PostReply).
		Scopes(page.Scope("posts.id")).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) CommunityFeed(ctx context.Context, communityID uint, ex *Exclusions, page pagination.Params) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Preload("User").
		Joins("JOIN community_posts ON community_posts.post_id = posts.id").
		Where("community_posts.community_id = ?", communityID).
		Scopes(visiblePosts, ex.Scope("posts.user_id", "")).
		Scopes(page.Scope("posts.id")).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ActiveRepost(ctx context.Context, userID, targetID uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Where("post_type = ?", models.PostRepost).
		Where("repost_of_post_id = ?", targetID).
		Where("is_deleted = ?", false).
		Order("id").
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) CommunityOf(ctx context.Context, postID uint) (*uint, error) {
	var link models.CommunityPost
	err := r.db.WithContext(ctx).Where("post_id = ?", postID).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &link.CommunityID, nil
}

// postsByIDs loads visible posts with authors, keyed by id.
func postsByIDs(ctx context.Context, db *gorm.DB, ids []uint) (map[uint]models.Post, error) {
	out := make(map[uint]models.Post, len(ids))
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}
	var posts []models.Post
	if err := db.WithContext(ctx).Preload("User").
		Scopes(visiblePosts).
		Where("posts.id IN ?", ids).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, p := range posts {
		out[p.ID] = p
	}
	return out, nil
}
