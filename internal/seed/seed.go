package seed

import (
	"context"
	"fmt"
	"log/slog"

	"murmur/internal/middleware"
	"murmur/internal/models"

	"gorm.io/gorm"
)

// clearOrder lists tables children first so foreign keys never dangle.
var clearOrder = []string{
	"community_posts",
	"community_members",
	"communities",
	"likes",
	"bookmarks",
	"follows",
	"blocks",
	"draft_media",
	"drafts",
	"post_media",
	"posts",
	"users",
}

// Summary counts what a run created.
type Summary struct {
	Users       int
	Posts       int
	Replies     int
	Follows     int
	Likes       int
	Bookmarks   int
	Communities int
}

// Seeder applies presets to a database.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts)}
}

// ClearAll removes every row the seeder can create.
func (s *Seeder) ClearAll(ctx context.Context) error {
	middleware.Logger.Info("clearing seeded tables")
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range clearOrder {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// Apply seeds one preset inside a single transaction.
func (s *Seeder) Apply(ctx context.Context, p Preset) (*Summary, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var sum Summary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f := s.factory.withDB(tx)

		users := make([]*models.User, 0, p.Users)
		for i := 0; i < p.Users; i++ {
			u, err := f.CreateUser()
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			users = append(users, u)
		}
		sum.Users = len(users)

		for _, a := range users {
			for _, b := range users {
				if a.ID == b.ID || !f.chance(p.FollowDensity) {
					continue
				}
				if err := f.CreateFollow(a, b); err != nil {
					return fmt.Errorf("create follow: %w", err)
				}
				sum.Follows++
			}
		}

		var originals []*models.Post
		for _, u := range users {
			for i := 0; i < p.PostsPerUser; i++ {
				originals = append(originals, f.BuildPost(u, models.Original()))
			}
		}
		if err := f.CreatePostsBatch(originals); err != nil {
			return fmt.Errorf("create posts: %w", err)
		}

		var replies []*models.Post
		if len(originals) > 0 {
			want := int(float64(len(originals)) * p.ReplyRatio)
			for i := 0; i < want; i++ {
				parent := originals[f.pick(len(originals))]
				author := users[f.pick(len(users))]
				replies = append(replies, f.BuildPost(author, models.ReplyTo(parent.ID), func(r *models.Post) {
					if r.CreatedAt.Before(parent.CreatedAt) {
						r.CreatedAt = parent.CreatedAt
						r.UpdatedAt = parent.CreatedAt
					}
				}))
			}
		}
		if err := f.CreatePostsBatch(replies); err != nil {
			return fmt.Errorf("create replies: %w", err)
		}
		sum.Posts = len(originals) + len(replies)
		sum.Replies = len(replies)

		all := append(append([]*models.Post{}, originals...), replies...)
		for _, u := range users {
			for _, post := range all {
				if post.UserID == u.ID {
					continue
				}
				if f.chance(p.LikeDensity) {
					if err := f.CreateLike(u, post); err != nil {
						return fmt.Errorf("create like: %w", err)
					}
					sum.Likes++
				}
				if f.chance(p.BookmarkDensity) {
					if err := f.CreateBookmark(u, post); err != nil {
						return fmt.Errorf("create bookmark: %w", err)
					}
					sum.Bookmarks++
				}
			}
		}

		if p.Communities && len(users) > 0 && !f.opts.DryRun {
			communities, err := Communities(tx, users[0])
			if err != nil {
				return fmt.Errorf("seed communities: %w", err)
			}
			sum.Communities = len(communities)
			for _, c := range communities {
				for _, u := range users[1:] {
					if !f.chance(p.FollowDensity) {
						continue
					}
					if err := joinCommunity(tx, u.ID, c.ID, models.CommunityRoleMember); err != nil {
						return fmt.Errorf("join community: %w", err)
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.Info("seed preset applied",
		slog.String("preset", p.Name),
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("follows", sum.Follows),
		slog.Int("likes", sum.Likes),
		slog.Int("bookmarks", sum.Bookmarks),
		slog.Int("communities", sum.Communities))
	return &sum, nil
}
