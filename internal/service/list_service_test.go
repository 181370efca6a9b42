package service

import (
	"context"
	"testing"

	"murmur/internal/models"
	"murmur/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListService_Bookmarks(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	viewer := testutil.CreateUser(t, f.db, "viewer")
	author := testutil.CreateUser(t, f.db, "author")
	posts := testutil.CreatePosts(t, f.db, author.ID, 20)
	for _, p := range posts {
		require.NoError(t, f.relationships.Bookmark(ctx, viewer.ID, p.ID))
	}

	p := page(3)
	var sizes []int
	var ids []uint
	for {
		views, info, err := f.lists.Bookmarks(ctx, viewer.ID, p, false)
		require.NoError(t, err)
		sizes = append(sizes, len(views))
		ids = append(ids, viewIDs(views)...)
		for _, v := range views {
			assert.True(t, v.IsBookmarked)
		}
		if !info.HasNextPage {
			assert.Nil(t, info.NextCursor)
			break
		}
		require.NotNil(t, info.NextCursor)
		p.Cursor = info.NextCursor
	}
	assert.Equal(t, []int{3, 3, 3, 3, 3, 3, 2}, sizes)
	require.Len(t, ids, 20)
	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i-1], ids[i])
	}
}

func TestListService_BookmarksDeduplicatesPosts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	viewer := testutil.CreateUser(t, f.db, "viewer")
	post := testutil.CreatePost(t, f.db, viewer.ID, "twice")
	// Two active rows can exist after a soft-delete race.
	require.NoError(t, f.db.Exec("DROP INDEX IF EXISTS uq_bookmarks_active").Error)
	require.NoError(t, f.db.Create(&models.Bookmark{UserID: viewer.ID, PostID: post.ID}).Error)
	require.NoError(t, f.db.Create(&models.Bookmark{UserID: viewer.ID, PostID: post.ID}).Error)

	views, _, err := f.lists.Bookmarks(ctx, viewer.ID, page(10), false)
	require.NoError(t, err)
	assert.Equal(t, []uint{post.ID}, viewIDs(views))
}

func TestListService_Engagement(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	viewer := testutil.CreateUser(t, f.db, "viewer")
	author := testutil.CreateUser(t, f.db, "author")
	liked := testutil.CreatePost(t, f.db, author.ID, "liked")
	testutil.CreatePost(t, f.db, author.ID, "not liked")
	_, err := f.relationships.Like(ctx, viewer.ID, liked.ID)
	require.NoError(t, err)
	reply, _, err := f.posts.CreatePost(ctx, CreatePostInput{UserID: viewer.ID, Content: "nice", InReplyToPostID: &liked.ID})
	require.NoError(t, err)

	kind, err := ParseEngagementType("likes")
	require.NoError(t, err)
	views, _, err := f.lists.Engagement(ctx, viewer.ID, kind, page(10), false)
	require.NoError(t, err)
	assert.Equal(t, []uint{liked.ID}, viewIDs(views))
	assert.True(t, views[0].IsLiked)

	views, _, err = f.lists.Engagement(ctx, viewer.ID, EngagementComments, page(10), true)
	require.NoError(t, err)
	require.Equal(t, []uint{reply.ID}, viewIDs(views))
	require.NotNil(t, views[0].ReplyTo)
	assert.Equal(t, liked.ID, views[0].ReplyTo.ID)

	_, err = ParseEngagementType("reposts")
	assertCode(t, err, models.CodeValidation)
}

func TestListService_Users(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	carol := testutil.CreateUser(t, f.db, "carol")
	dave := testutil.CreateUser(t, f.db, "dave")

	require.NoError(t, f.relationships.Follow(ctx, bob.ID, alice.ID))
	require.NoError(t, f.relationships.Follow(ctx, carol.ID, alice.ID))
	require.NoError(t, f.relationships.Follow(ctx, dave.ID, alice.ID))
	require.NoError(t, f.relationships.Follow(ctx, alice.ID, bob.ID))

	followers, info, err := f.lists.Followers(ctx, alice.ID, alice.ID, page(10))
	require.NoError(t, err)
	assert.False(t, info.HasNextPage)
	require.Len(t, followers, 3)
	assert.Equal(t, "dave", followers[0].Username, "newest follow first")
	assert.NotNil(t, followers[0].FollowedAt)

	following, _, err := f.lists.Following(ctx, carol.ID, alice.ID, page(10))
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, bob.ID, following[0].ID)

	require.NoError(t, f.relationships.Block(ctx, bob.ID, dave.ID))
	followers, _, err = f.lists.Followers(ctx, bob.ID, alice.ID, page(10))
	require.NoError(t, err)
	assert.Len(t, followers, 2, "blocked follower is filtered for the blocker")

	_, _, err = f.lists.Followers(ctx, dave.ID, bob.ID, page(10))
	assertCode(t, err, models.CodeNotFound)

	blocks, _, err := f.lists.Blocks(ctx, bob.ID, page(10))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, dave.ID, blocks[0].ID)
	assert.NotNil(t, blocks[0].BlockedAt)
	assert.Nil(t, blocks[0].FollowedAt)
}
