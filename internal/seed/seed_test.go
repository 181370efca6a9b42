package seed

import (
	"context"
	"testing"
	"time"

	"murmur/internal/models"
	"murmur/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePresets(t *testing.T) {
	presets, err := ParsePresets([]byte(`
presets:
  - name: Demo
    users: 3
    posts_per_user: 2
    follow_density: 1
    like_density: 0.5
`))
	require.NoError(t, err)

	p, err := Lookup(presets, "demo")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Users)
	assert.Equal(t, 2, p.PostsPerUser)
	assert.Equal(t, 1.0, p.FollowDensity)

	_, err = Lookup(presets, "missing")
	assert.ErrorContains(t, err, "available: demo")
}

func TestParsePresets_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "presets: [:"},
		{"no name", "presets:\n  - users: 1\n"},
		{"negative", "presets:\n  - name: a\n    users: -1\n"},
		{"density", "presets:\n  - name: a\n    like_density: 1.5\n"},
		{"duplicate", "presets:\n  - name: a\n  - name: A\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePresets([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadPresets_RepositoryFile(t *testing.T) {
	presets, err := LoadPresets("../../" + DefaultPresetsPath)
	require.NoError(t, err)
	for _, name := range []string{"tiny", "small", "populated"} {
		_, err := Lookup(presets, name)
		assert.NoError(t, err, name)
	}
}

func TestBuildPost(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true, MaxDays: 30, RandSeed: 7})
	user := &models.User{ID: 1}

	p := f.BuildPost(user, models.Original())
	assert.Equal(t, models.PostOriginal, p.PostType)
	assert.NotEmpty(t, p.Content)
	assert.LessOrEqual(t, len([]rune(p.Content)), maxSeedContent)
	assert.WithinDuration(t, time.Now(), p.CreatedAt, 31*24*time.Hour)

	reply := f.BuildPost(user, models.ReplyTo(42))
	require.NotNil(t, reply.InReplyToPostID)
	assert.EqualValues(t, 42, *reply.InReplyToPostID)

	repost := f.BuildPost(user, models.RepostOf(42))
	assert.Empty(t, repost.Content)
}

func TestCreatePostsBatch_DryRunOrdersByTime(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true, RandSeed: 3})
	user := &models.User{ID: 1}
	now := time.Now()
	posts := []*models.Post{
		f.BuildPost(user, models.Original(), func(p *models.Post) { p.CreatedAt = now }),
		f.BuildPost(user, models.Original(), func(p *models.Post) { p.CreatedAt = now.Add(-time.Hour) }),
	}
	require.NoError(t, f.CreatePostsBatch(posts))
	assert.Less(t, posts[0].ID, posts[1].ID)
	assert.True(t, posts[0].CreatedAt.Before(posts[1].CreatedAt))
}

func TestBuildUser_UniqueUsernames(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true, RandSeed: 1})
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		u := f.BuildUser()
		assert.False(t, seen[u.Username], u.Username)
		assert.LessOrEqual(t, len([]rune(u.Username)), 30)
		assert.Equal(t, models.RoleUser, u.Role)
		assert.Contains(t, []string{models.TierFree, models.TierPlus}, u.SubscriptionTier)
		seen[u.Username] = true
	}
}

func TestSeeder_Apply(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewSeeder(db, Options{RandSeed: 11})

	sum, err := s.Apply(context.Background(), Preset{
		Name:          "full-mesh",
		Users:         4,
		PostsPerUser:  2,
		FollowDensity: 1,
		LikeDensity:   1,
		ReplyRatio:    0.5,
		Communities:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Users)
	assert.Equal(t, 4*3, sum.Follows)
	assert.Equal(t, 4, sum.Replies)
	assert.Equal(t, 12, sum.Posts)
	assert.Zero(t, sum.Bookmarks)
	assert.Equal(t, len(BuiltInCommunities), sum.Communities)

	var count int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&count).Error)
	assert.EqualValues(t, sum.Follows, count)
	require.NoError(t, db.Model(&models.Post{}).Where("post_type = ?", models.PostReply).Count(&count).Error)
	assert.EqualValues(t, sum.Replies, count)
	require.NoError(t, db.Model(&models.Like{}).Count(&count).Error)
	assert.EqualValues(t, sum.Likes, count)
	require.NoError(t, db.Model(&models.Like{}).
		Joins("JOIN posts ON posts.id = likes.post_id").
		Where("posts.user_id = likes.user_id").Count(&count).Error)
	assert.Zero(t, count, "nobody likes their own post")

	// Every user joins every community at full density.
	require.NoError(t, db.Model(&models.CommunityMember{}).Count(&count).Error)
	assert.EqualValues(t, 4*len(BuiltInCommunities), count)

	require.NoError(t, s.ClearAll(context.Background()))
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCommunities_Idempotent(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")

	_, err := Communities(db, owner)
	require.NoError(t, err)
	again, err := Communities(db, owner)
	require.NoError(t, err)
	require.Len(t, again, len(BuiltInCommunities))

	var count int64
	require.NoError(t, db.Model(&models.Community{}).Count(&count).Error)
	assert.EqualValues(t, len(BuiltInCommunities), count)
	require.NoError(t, db.Model(&models.CommunityMember{}).
		Where("role = ?", models.CommunityRoleOwner).Count(&count).Error)
	assert.EqualValues(t, len(BuiltInCommunities), count)
}

func TestSeeder_ApplyRejectsInvalidPreset(t *testing.T) {
	s := NewSeeder(testutil.NewDB(t), Options{})
	_, err := s.Apply(context.Background(), Preset{Name: "bad", LikeDensity: 2})
	assert.Error(t, err)
}
