package repository

import (
	"context"
	"time"

	"murmur/internal/database"
	"murmur/internal/models"
	"murmur/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Toggle manages one soft-deleted pair relation. At most one active row per
// (actor, target) exists; the partial unique index on the table enforces it.
type Toggle[T any] struct {
	db        *gorm.DB
	name      string
	table     string
	actorCol  string
	targetCol string
	build     func(actor, target uint) *T
}

func NewLikeToggle(db *gorm.DB) *Toggle[models.Like] {
	return &Toggle[models.Like]{db: db, name: "like", table: "likes", actorCol: "user_id", targetCol: "post_id",
		build: func(a, t uint) *models.Like { return &models.Like{UserID: a, PostID: t} }}
}

func NewBookmarkToggle(db *gorm.DB) *Toggle[models.Bookmark] {
	return &Toggle[models.Bookmark]{db: db, name: "bookmark", table: "bookmarks", actorCol: "user_id", targetCol: "post_id",
		build: func(a, t uint) *models.Bookmark { return &models.Bookmark{UserID: a, PostID: t} }}
}

func NewFollowToggle(db *gorm.DB) *Toggle[models.Follow] {
	return &Toggle[models.Follow]{db: db, name: "follow", table: "follows", actorCol: "follower_id", targetCol: "following_id",
		build: func(a, t uint) *models.Follow { return &models.Follow{FollowerID: a, FollowingID: t} }}
}

func NewBlockToggle(db *gorm.DB) *Toggle[models.Block] {
	return &Toggle[models.Block]{db: db, name: "block", table: "blocks", actorCol: "blocker_id", targetCol: "blocked_id",
		build: func(a, t uint) *models.Block { return &models.Block{BlockerID: a, BlockedID: t} }}
}

// NewMembershipToggle toggles community membership. The actor is the user
// and the target the community.
func NewMembershipToggle(db *gorm.DB) *Toggle[models.CommunityMember] {
	return &Toggle[models.CommunityMember]{db: db, name: "membership", table: "community_members", actorCol: "user_id", targetCol: "community_id",
		build: func(a, t uint) *models.CommunityMember {
			return &models.CommunityMember{UserID: a, CommunityID: t, Role: models.CommunityRoleMember}
		}}
}

func (t *Toggle[T]) pair(actor, target uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where(clause.Eq{Column: t.actorCol, Value: actor}).
			Where(clause.Eq{Column: t.targetCol, Value: target}).
			Where(clause.Eq{Column: "is_deleted", Value: false})
	}
}

// Activate makes the pair active. created is false when it already was,
// including when a concurrent insert won the race.
func (t *Toggle[T]) Activate(ctx context.Context, actor, target uint) (created bool, err error) {
	ctx, done := instrument(ctx, "Activate", t.table)
	defer func() { done(err) }()

	err = t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(new(T)).Scopes(t.pair(actor, target)).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if err := tx.Create(t.build(actor, target)).Error; err != nil {
			return err
		}
		created = true
		return nil
	})

	switch {
	case err != nil && database.IsUniqueViolation(err):
		observability.ToggleTransitions.WithLabelValues(t.name, observability.ToggleConflict).Inc()
		return false, nil
	case err != nil:
		return false, models.NewInternalError(err)
	case created:
		observability.ToggleTransitions.WithLabelValues(t.name, observability.ToggleCreated).Inc()
	default:
		observability.ToggleTransitions.WithLabelValues(t.name, observability.ToggleNoop).Inc()
	}
	return created, nil
}

// Deactivate soft-deletes the active row, if any, in one statement.
func (t *Toggle[T]) Deactivate(ctx context.Context, actor, target uint) (removed bool, err error) {
	ctx, done := instrument(ctx, "Deactivate", t.table)
	defer func() { done(err) }()

	now := time.Now().UTC()
	res := t.db.WithContext(ctx).Model(new(T)).Scopes(t.pair(actor, target)).
		UpdateColumns(map[string]any{"is_deleted": true, "deleted_at": now})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	removed = res.RowsAffected > 0
	outcome := observability.ToggleNoop
	if removed {
		outcome = observability.ToggleRemoved
	}
	observability.ToggleTransitions.WithLabelValues(t.name, outcome).Inc()
	return removed, nil
}

func (t *Toggle[T]) IsActive(ctx context.Context, actor, target uint) (bool, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(new(T)).Scopes(t.pair(actor, target)).Limit(1).Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

// CountTarget counts active rows pointing at target.
func (t *Toggle[T]) CountTarget(ctx context.Context, target uint) (int64, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(new(T)).
		Where(clause.Eq{Column: t.targetCol, Value: target}).
		Where(clause.Eq{Column: "is_deleted", Value: false}).
		Count(&n).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

// CountActor counts active rows owned by actor.
func (t *Toggle[T]) CountActor(ctx context.Context, actor uint) (int64, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(new(T)).
		Where(clause.Eq{Column: t.actorCol, Value: actor}).
		Where(clause.Eq{Column: "is_deleted", Value: false}).
		Count(&n).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
