package service

import (
	"context"
	"strings"
	"testing"

	"murmur/internal/media"
	"murmur/internal/models"
	"murmur/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftService_Lifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	parent := testutil.CreatePost(t, f.db, bob.ID, "parent")

	_, err := f.drafts.Create(ctx, alice.ID, DraftInput{Content: " "})
	assertCode(t, err, models.CodeValidation)
	_, err = f.drafts.Create(ctx, alice.ID, DraftInput{Content: "x", InReplyToPostID: uintPtr(9999)})
	assertCode(t, err, models.CodeNotFound)

	d, err := f.drafts.Create(ctx, alice.ID, DraftInput{
		Content:         "first",
		InReplyToPostID: &parent.ID,
		Media:           []media.Input{{URL: "https://cdn.example.com/v/clip.mp4"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, d.MediaCount)

	_, err = f.drafts.Get(ctx, bob.ID, d.ID)
	assertCode(t, err, models.CodeForbidden)
	_, err = f.drafts.Update(ctx, bob.ID, d.ID, DraftInput{Content: "stolen"})
	assertCode(t, err, models.CodeForbidden)
	assertCode(t, f.drafts.Delete(ctx, bob.ID, d.ID), models.CodeForbidden)

	updated, err := f.drafts.Update(ctx, alice.ID, d.ID, DraftInput{
		Content: "second",
		Media: []media.Input{
			{URL: "https://cdn.example.com/a.png"},
			{URL: "https://cdn.example.com/b.png"},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, updated.InReplyToPostID)

	got, err := f.drafts.Get(ctx, alice.ID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Content)
	require.Len(t, got.Media, 2)
	assert.Equal(t, "https://cdn.example.com/a.png", got.Media[0].URL)
	assert.Equal(t, models.MediaImage, got.Media[1].MediaType)

	_, err = f.drafts.Update(ctx, alice.ID, d.ID, DraftInput{Content: "x", Media: make([]media.Input, 3)})
	assertCode(t, err, models.CodeValidation)

	require.NoError(t, f.drafts.Delete(ctx, alice.ID, d.ID))
	_, err = f.drafts.Get(ctx, alice.ID, d.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestDraftService_ListPaginates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	for i := 0; i < 5; i++ {
		_, err := f.drafts.Create(ctx, alice.ID, DraftInput{Content: "draft"})
		require.NoError(t, err)
	}
	_, err := f.drafts.Create(ctx, bob.ID, DraftInput{Content: "not yours"})
	require.NoError(t, err)

	p := page(2)
	var sizes []int
	for {
		rows, info, err := f.drafts.List(ctx, alice.ID, p)
		require.NoError(t, err)
		sizes = append(sizes, len(rows))
		for _, d := range rows {
			assert.Equal(t, alice.ID, d.UserID)
			assert.NotNil(t, d.Media)
		}
		if !info.HasNextPage {
			break
		}
		p.Cursor = info.NextCursor
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestDraftService_ContentLengthIgnoresSurroundingWhitespace(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	body := strings.Repeat("a", testLimits.MaxContentLength)

	d, err := f.drafts.Create(ctx, alice.ID, DraftInput{Content: "   " + body + "\n"})
	require.NoError(t, err)
	assert.Equal(t, body, d.Content)

	d, err = f.drafts.Update(ctx, alice.ID, d.ID, DraftInput{Content: "\t" + body + "  "})
	require.NoError(t, err)
	assert.Equal(t, body, d.Content)

	_, err = f.drafts.Create(ctx, alice.ID, DraftInput{Content: body + "b"})
	assertCode(t, err, models.CodeValidation)
}
