package server

import (
	"fmt"
	"net/http"
	"testing"

	"murmur/internal/models"
	"murmur/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftEndpoints(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice")
	bob := env.user("bob")
	parent := testutil.CreatePost(t, env.db, bob.ID, "parent")

	assertError(t, env.call(http.MethodPost, "/api/drafts", alice, fiber.Map{"content": ""}), fiber.StatusBadRequest, models.CodeValidation)
	assertError(t, env.call(http.MethodPost, "/api/drafts", alice, fiber.Map{"content": "x", "in_reply_to_post_id": 9999}), fiber.StatusNotFound, models.CodeNotFound)

	resp := env.call(http.MethodPost, "/api/drafts", alice, fiber.Map{"content": "first", "in_reply_to_post_id": parent.ID})
	requireStatus(t, resp, fiber.StatusCreated)
	draft := decode[DraftResponse](t, resp).Draft
	require.NotNil(t, draft)
	path := fmt.Sprintf("/api/drafts/%d", draft.ID)

	assertError(t, env.call(http.MethodGet, path, bob, nil), fiber.StatusForbidden, models.CodeForbidden)

	resp = env.call(http.MethodPut, path, alice, fiber.Map{
		"content": "second",
		"media":   []fiber.Map{{"url": "https://cdn.example.com/a.mp4"}},
	})
	requireStatus(t, resp, fiber.StatusOK)
	updated := decode[DraftResponse](t, resp).Draft
	assert.Equal(t, "second", updated.Content)

	resp = env.call(http.MethodGet, "/api/drafts", alice, nil)
	requireStatus(t, resp, fiber.StatusOK)
	list := decode[DraftListResponse](t, resp)
	require.Len(t, list.Drafts, 1)
	assert.False(t, list.Pagination.HasNextPage)

	requireStatus(t, env.call(http.MethodDelete, path, alice, nil), fiber.StatusNoContent)
	assertError(t, env.call(http.MethodGet, path, alice, nil), fiber.StatusNotFound, models.CodeNotFound)
}
