package service

import (
	"context"
	"testing"

	"murmur/internal/models"
	"murmur/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationshipService_Follow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	carol := testutil.CreateUser(t, f.db, "carol")

	assertCode(t, f.relationships.Follow(ctx, alice.ID, alice.ID), models.CodeValidation)
	assertCode(t, f.relationships.Follow(ctx, alice.ID, 9999), models.CodeNotFound)

	require.NoError(t, f.relationships.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, f.relationships.Follow(ctx, alice.ID, bob.ID), "repeat follow is a no-op")

	status, err := f.relationships.FollowStatus(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, FollowStatus{IsFollowing: false, IsFollowedBy: true}, *status)

	testutil.Block(t, f.db, carol.ID, alice.ID)
	assertCode(t, f.relationships.Follow(ctx, alice.ID, carol.ID), models.CodeForbidden)
	assertCode(t, f.relationships.Follow(ctx, carol.ID, alice.ID), models.CodeForbidden)

	require.NoError(t, f.relationships.Unfollow(ctx, alice.ID, bob.ID))
	require.NoError(t, f.relationships.Unfollow(ctx, alice.ID, bob.ID), "repeat unfollow is a no-op")
	n, err := f.toggles.Follows.CountTarget(ctx, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelationshipService_Block(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	banned := testutil.CreateUser(t, f.db, "banned")
	testutil.Ban(t, f.db, banned.ID)

	assertCode(t, f.relationships.Block(ctx, alice.ID, alice.ID), models.CodeValidation)
	assertCode(t, f.relationships.Block(ctx, alice.ID, banned.ID), models.CodeValidation)
	assertCode(t, f.relationships.Block(ctx, alice.ID, 9999), models.CodeNotFound)

	require.NoError(t, f.relationships.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, f.relationships.Follow(ctx, bob.ID, alice.ID))

	require.NoError(t, f.relationships.Block(ctx, alice.ID, bob.ID))
	require.NoError(t, f.relationships.Block(ctx, alice.ID, bob.ID))

	blocked, err := f.relationships.IsBlocked(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, blocked)

	for _, pair := range [][2]uint{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		on, err := f.toggles.Follows.IsActive(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.False(t, on, "block removes follows in both directions")
	}

	var rows int64
	require.NoError(t, f.db.Model(&models.Block{}).Where("is_deleted = ?", false).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	require.NoError(t, f.relationships.Unblock(ctx, alice.ID, bob.ID))
	blocked, err = f.relationships.IsBlocked(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, blocked)
}

// A viewer likes a post and sees the count; a third user sees the count
// without the flag.
func TestRelationshipService_LikeScenario(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	u1 := testutil.CreateUser(t, f.db, "u1")
	u2 := testutil.CreateUser(t, f.db, "u2")
	u3 := testutil.CreateUser(t, f.db, "u3")

	post, _, err := f.posts.CreatePost(ctx, CreatePostInput{UserID: u1.ID, Content: "hello"})
	require.NoError(t, err)

	state, err := f.relationships.Like(ctx, u2.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeState{Liked: true, LikeCount: 1}, *state)

	state, err = f.relationships.Like(ctx, u2.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.LikeCount, "repeat like is a no-op")

	feed, _, err := f.posts.Feed(ctx, u3.ID, FeedInput{Page: page(10)})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, int64(1), feed[0].LikeCount)
	assert.False(t, feed[0].IsLiked)

	state, err = f.relationships.Unlike(ctx, u2.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeState{Liked: false, LikeCount: 0}, *state)

	var rows int64
	require.NoError(t, f.db.Model(&models.Like{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows, "history row kept")

	_, err = f.relationships.Like(ctx, u2.ID, post.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.Like{}).Count(&rows).Error)
	assert.Equal(t, int64(2), rows, "relike inserts a new row")
}

func TestRelationshipService_ReactionsRequireVisiblePost(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	post := testutil.CreatePost(t, f.db, alice.ID, "hello")
	hidden := testutil.CreatePost(t, f.db, alice.ID, "hidden")
	require.NoError(t, f.db.Model(hidden).Update("is_hidden", true).Error)

	_, err := f.relationships.Like(ctx, bob.ID, 9999)
	assertCode(t, err, models.CodeNotFound)
	_, err = f.relationships.Like(ctx, bob.ID, hidden.ID)
	assertCode(t, err, models.CodeNotFound)
	assertCode(t, f.relationships.Bookmark(ctx, bob.ID, hidden.ID), models.CodeNotFound)

	require.NoError(t, f.relationships.Bookmark(ctx, bob.ID, post.ID))
	testutil.Block(t, f.db, alice.ID, bob.ID)
	_, err = f.relationships.Like(ctx, bob.ID, post.ID)
	assertCode(t, err, models.CodeNotFound)

	require.NoError(t, f.relationships.Unbookmark(ctx, bob.ID, post.ID), "stale bookmarks can be cleared")
}
