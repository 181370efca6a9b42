package repository

import (
	"context"
	"fmt"

	"murmur/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Metric names one engagement counter.
type Metric string

const (
	MetricLikes     Metric = "likes"
	MetricBookmarks Metric = "bookmarks"
	MetricReplies   Metric = "replies"
	MetricReposts   Metric = "reposts"
)

// metricSource says where a metric is counted: the table, the column that
// holds the post id, the column that holds the acting user, and whether
// the rows are posts that need moderation filtering.
type metricSource struct {
	model   any
	table   string
	postCol string
	userCol string
	isPost  bool
}

var metricSources = map[Metric]metricSource{
	MetricLikes:     {model: &models.Like{}, table: "likes", postCol: "post_id", userCol: "user_id"},
	MetricBookmarks: {model: &models.Bookmark{}, table: "bookmarks", postCol: "post_id", userCol: "user_id"},
	MetricReplies:   {model: &models.Post{}, table: "posts", postCol: "in_reply_to_post_id", userCol: "user_id", isPost: true},
	MetricReposts:   {model: &models.Post{}, table: "posts", postCol: "repost_of_post_id", userCol: "user_id", isPost: true},
}

// EngagementRepository provides the batch reads behind post enrichment.
// Every method issues one query for the whole id list.
type EngagementRepository interface {
	Counts(ctx context.Context, metric Metric, postIDs []uint) (map[uint]int64, error)
	ViewerSet(ctx context.Context, metric Metric, viewerID uint, postIDs []uint) (map[uint]bool, error)
	MediaFor(ctx context.Context, postIDs []uint) (map[uint][]models.PostMedia, error)
	PostsByIDs(ctx context.Context, ids []uint) (map[uint]models.Post, error)
}

type engagementRepository struct {
	db *gorm.DB
}

func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

func (r *engagementRepository) source(ctx context.Context, metric Metric) (*gorm.DB, metricSource, error) {
	src, ok := metricSources[metric]
	if !ok {
		return nil, src, fmt.Errorf("unknown engagement metric %q", metric)
	}
	db := r.db.WithContext(ctx).Model(src.model).Scopes(active(src.table))
	if src.isPost {
		db = db.Where("posts.is_hidden = ?", false)
	}
	if metric == MetricReposts {
		db = db.Where("posts.post_type = ?", models.PostRepost)
	}
	return db, src, nil
}

func (r *engagementRepository) Counts(ctx context.Context, metric Metric, postIDs []uint) (out map[uint]int64, err error) {
	out = make(map[uint]int64)
	postIDs = uniqueIDs(postIDs)
	if len(postIDs) == 0 {
		return out, nil
	}
	ctx, done := instrument(ctx, "Counts", string(metric))
	defer func() { done(err) }()

	db, src, err := r.source(ctx, metric)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	var rows []struct {
		PostID uint
		N      int64
	}
	err = db.
		Select(src.postCol+" AS post_id, COUNT(*) AS n").
		Where(clause.IN{Column: src.postCol, Values: uintsToAny(postIDs)}).
		Group(src.postCol).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		out[row.PostID] = row.N
	}
	return out, nil
}

func (r *engagementRepository) ViewerSet(ctx context.Context, metric Metric, viewerID uint, postIDs []uint) (out map[uint]bool, err error) {
	out = make(map[uint]bool)
	postIDs = uniqueIDs(postIDs)
	if viewerID == 0 || len(postIDs) == 0 {
		return out, nil
	}
	ctx, done := instrument(ctx, "ViewerSet", string(metric))
	defer func() { done(err) }()

	db, src, err := r.source(ctx, metric)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	var ids []uint
	err = db.
		Where(clause.Eq{Column: src.userCol, Value: viewerID}).
		Where(clause.IN{Column: src.postCol, Values: uintsToAny(postIDs)}).
		Distinct().
		Pluck(src.postCol, &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *engagementRepository) MediaFor(ctx context.Context, postIDs []uint) (map[uint][]models.PostMedia, error) {
	out := make(map[uint][]models.PostMedia)
	postIDs = uniqueIDs(postIDs)
	if len(postIDs) == 0 {
		return out, nil
	}
	var rows []models.PostMedia
	err := r.db.WithContext(ctx).
		Scopes(active("post_media")).
		Where("post_id IN ?", postIDs).
		Order("post_id").Order("sort_order").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, m := range rows {
		out[m.PostID] = append(out[m.PostID], m)
	}
	return out, nil
}

func (r *engagementRepository) PostsByIDs(ctx context.Context, ids []uint) (map[uint]models.Post, error) {
	return postsByIDs(ctx, r.db, ids)
}
