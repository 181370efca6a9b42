package repository

import (
	"context"
	"sort"

	"murmur/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Exclusions is the per-viewer visibility filter applied to every listing.
type Exclusions struct {
	// AuthorIDs holds users the viewer blocked, users who blocked the
	// viewer, and banned users. Sorted, no duplicates.
	AuthorIDs []uint
	// CommunityPosts hides every post published into a community.
	CommunityPosts bool
}

// Excludes reports whether posts by userID are hidden from the viewer.
func (e *Exclusions) Excludes(userID uint) bool {
	if e == nil {
		return false
	}
	i := sort.Search(len(e.AuthorIDs), func(i int) bool { return e.AuthorIDs[i] >= userID })
	return i < len(e.AuthorIDs) && e.AuthorIDs[i] == userID
}

// Scope filters authorColumn against AuthorIDs and, for feeds, postIDColumn
// against community posts. An empty postIDColumn skips the community check.
func (e *Exclusions) Scope(authorColumn, postIDColumn string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if e == nil {
			return db
		}
		if len(e.AuthorIDs) > 0 {
			db = db.Where(clause.Not(clause.IN{
				Column: clause.Column{Name: authorColumn, Raw: true},
				Values: uintsToAny(e.AuthorIDs),
			}))
		}
		if e.CommunityPosts && postIDColumn != "" {
			sub := db.Session(&gorm.Session{NewDB: true}).
				Model(&models.CommunityPost{}).
				Select("post_id")
			db = db.Where(clause.Expr{
				SQL:  "? NOT IN (?)",
				Vars: []any{clause.Column{Name: postIDColumn, Raw: true}, sub},
			})
		}
		return db
	}
}

// RelationshipRepository computes visibility exclusions.
type RelationshipRepository interface {
	Exclusions(ctx context.Context, viewerID uint, feed bool) (*Exclusions, error)
	// BlockAndUnfollow activates the block and removes follows in both
	// directions in one transaction.
	BlockAndUnfollow(ctx context.Context, blockerID, blockedID uint) (bool, error)
}

type relationshipRepository struct {
	db *gorm.DB
}

func NewRelationshipRepository(db *gorm.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

func (r *relationshipRepository) BlockAndUnfollow(ctx context.Context, blockerID, blockedID uint) (bool, error) {
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if created, err = NewBlockToggle(tx).Activate(ctx, blockerID, blockedID); err != nil {
			return err
		}
		follows := NewFollowToggle(tx)
		if _, err := follows.Deactivate(ctx, blockerID, blockedID); err != nil {
			return err
		}
		_, err = follows.Deactivate(ctx, blockedID, blockerID)
		return err
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *relationshipRepository) Exclusions(ctx context.Context, viewerID uint, feed bool) (ex *Exclusions, err error) {
	ctx, done := instrument(ctx, "Exclusions", "blocks")
	defer func() { done(err) }()

	db := r.db.WithContext(ctx)

	var blocked, blockers, banned []uint
	if viewerID != 0 {
		if err := db.Model(&models.Block{}).Scopes(active("blocks")).
			Where("blocker_id = ?", viewerID).Pluck("blocked_id", &blocked).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		if err := db.Model(&models.Block{}).Scopes(active("blocks")).
			Where("blocked_id = ?", viewerID).Pluck("blocker_id", &blockers).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	if err := db.Model(&models.User{}).Where("is_banned = ?", true).Pluck("id", &banned).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	ids := uniqueIDs(append(append(blocked, blockers...), banned...))
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &Exclusions{AuthorIDs: ids, CommunityPosts: feed}, nil
}
