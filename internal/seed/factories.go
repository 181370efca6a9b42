// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"sort"
	"time"

	"murmur/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

const maxSeedContent = 500

// Options tunes the factory.
type Options struct {
	// MaxDays spreads post timestamps over the last MaxDays days.
	MaxDays int
	// DryRun assigns synthetic ids instead of writing rows.
	DryRun bool
	// RandSeed makes generated data reproducible. Zero picks a random seed.
	RandSeed int64
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	// synthetic ID counter when running in DryRun mode
	nextID uint
	seq    int
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	return &Factory{db: db, opts: opts, faker: gofakeit.New(opts.RandSeed), nextID: 1000}
}

// withDB returns a factory sharing this one's generator but writing through db.
func (f *Factory) withDB(db *gorm.DB) *Factory {
	clone := *f
	clone.db = db
	return &clone
}

func (f *Factory) syntheticID() uint {
	f.nextID++
	return f.nextID
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// BuildUser constructs a user without persisting it. Usernames carry a
// sequence suffix so a single factory never repeats one.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	f.seq++
	user := &models.User{
		ExternalID:       "seed_" + f.faker.UUID(),
		Username:         fmt.Sprintf("%s_%d", truncateRunes(f.faker.Username(), 20), f.seq),
		DisplayName:      truncateRunes(f.faker.Name(), 50),
		Bio:              truncateRunes(f.faker.Sentence(10), 160),
		AvatarURL:        fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		Role:             models.RoleUser,
		SubscriptionTier: models.TierFree,
	}
	if f.chance(0.1) {
		user.SubscriptionTier = models.TierPlus
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if f.opts.DryRun {
		user.ID = f.syntheticID()
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post of the given kind without persisting it.
func (f *Factory) BuildPost(user *models.User, kind models.PostKind, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		UserID:  user.ID,
		Content: truncateRunes(f.faker.Paragraph(1, 3, 8, " "), maxSeedContent),
	}
	if kind.Type() == models.PostRepost {
		post.Content = ""
	}
	post.SetKind(kind)

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute
	post.CreatedAt = time.Now().Add(-back)
	post.UpdatedAt = post.CreatedAt

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists posts in one statement. Posts are inserted
// oldest first so id order agrees with created_at.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.Before(posts[j].CreatedAt)
	})
	if f.opts.DryRun {
		for _, p := range posts {
			p.ID = f.syntheticID()
		}
		return nil
	}
	return f.db.Create(&posts).Error
}

// CreatePost constructs and persists a single post.
func (f *Factory) CreatePost(user *models.User, kind models.PostKind, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(user, kind, overrides...)
	if err := f.CreatePostsBatch([]*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

func (f *Factory) create(row any) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.Create(row).Error
}

// CreateFollow makes follower follow following.
func (f *Factory) CreateFollow(follower, following *models.User) error {
	return f.create(&models.Follow{FollowerID: follower.ID, FollowingID: following.ID})
}

// CreateLike records user liking post.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	return f.create(&models.Like{UserID: user.ID, PostID: post.ID})
}

// CreateBookmark records user bookmarking post.
func (f *Factory) CreateBookmark(user *models.User, post *models.Post) error {
	return f.create(&models.Bookmark{UserID: user.ID, PostID: post.ID})
}

// chance reports true with probability p.
func (f *Factory) chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return f.faker.Float64Range(0, 1) < p
}

func (f *Factory) pick(n int) int {
	return f.faker.Number(0, n-1)
}
