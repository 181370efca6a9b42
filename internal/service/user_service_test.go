package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"murmur/internal/models"
	"murmur/internal/repository"
	"murmur/internal/testutil"
	"murmur/internal/webhook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userEvent(t *testing.T, typ string, data webhook.UserData) *webhook.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return &webhook.Event{Type: typ, Data: raw}
}

func TestFallbackUsername(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "user_Zx91abcd", fallbackUsername("user_2NNEqL2nrIRdJ194ndJqAHwEfxC_Zx91abcd"))
	assert.Equal(t, "user_short", fallbackUsername("short"))
	assert.Equal(t, "user_abcdef12", fallbackUsername("id-ab.cd-ef12"))
}

func TestUserService_HandleWebhook_Sync(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	users := repository.NewUserRepository(f.db)

	require.NoError(t, f.users.HandleWebhook(ctx, userEvent(t, webhook.EventUserCreated, webhook.UserData{
		ID: "ext_00000001", Username: "gopher", FirstName: "Go", LastName: "Pher",
	})))
	u, err := users.GetByExternalID(ctx, "ext_00000001")
	require.NoError(t, err)
	assert.Equal(t, "gopher", u.Username)
	assert.Equal(t, "Go Pher", u.DisplayName)

	require.NoError(t, f.users.HandleWebhook(ctx, userEvent(t, webhook.EventUserUpdated, webhook.UserData{
		ID: "ext_00000001", Username: "gopher2", ImageURL: "https://img.example.com/a.png",
	})))
	again, err := users.GetByExternalID(ctx, "ext_00000001")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID, "upsert keeps the row")
	assert.Equal(t, "gopher2", again.Username)
	assert.Equal(t, "https://img.example.com/a.png", again.AvatarURL)

	t.Run("missing username falls back", func(t *testing.T) {
		require.NoError(t, f.users.HandleWebhook(ctx, userEvent(t, webhook.EventUserCreated, webhook.UserData{ID: "ext_1234abcd5678"})))
		u, err := users.GetByExternalID(ctx, "ext_1234abcd5678")
		require.NoError(t, err)
		assert.Equal(t, "user_abcd5678", u.Username)
	})

	t.Run("taken username falls back", func(t *testing.T) {
		require.NoError(t, f.users.HandleWebhook(ctx, userEvent(t, webhook.EventUserCreated, webhook.UserData{ID: "ext_9999zzzz", Username: "gopher2"})))
		u, err := users.GetByExternalID(ctx, "ext_9999zzzz")
		require.NoError(t, err)
		assert.Equal(t, "user_9999zzzz", u.Username)
	})

	t.Run("unknown events are acknowledged", func(t *testing.T) {
		require.NoError(t, f.users.HandleWebhook(ctx, &webhook.Event{Type: "session.created", Data: json.RawMessage(`{}`)}))
	})

	t.Run("invalid payload", func(t *testing.T) {
		err := f.users.HandleWebhook(ctx, &webhook.Event{Type: webhook.EventUserCreated, Data: json.RawMessage(`{"username":"x"}`)})
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("deleted", func(t *testing.T) {
		require.NoError(t, f.users.HandleWebhook(ctx, userEvent(t, webhook.EventUserDeleted, webhook.UserData{ID: "ext_00000001", Deleted: true})))
		_, err := users.GetByExternalID(ctx, "ext_00000001")
		assertCode(t, err, models.CodeNotFound)
		require.NoError(t, f.users.HandleWebhook(ctx, userEvent(t, webhook.EventUserDeleted, webhook.UserData{ID: "ext_unknown"})))
	})
}

func TestUserService_UpdateProfile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	testutil.CreateUser(t, f.db, "taken")

	tests := []struct {
		name    string
		in      UpdateProfileInput
		code    string
		message string
	}{
		{name: "short username", in: UpdateProfileInput{Username: strPtr("ab")}, code: models.CodeValidation, message: "username must be at least 3"},
		{name: "long username", in: UpdateProfileInput{Username: strPtr(strings.Repeat("a", 31))}, code: models.CodeValidation, message: "username must be at most 30"},
		{name: "bad characters", in: UpdateProfileInput{Username: strPtr("no spaces")}, code: models.CodeValidation, message: "letters, digits and underscores"},
		{name: "long bio", in: UpdateProfileInput{Bio: strPtr(strings.Repeat("b", 161))}, code: models.CodeValidation, message: "bio must be at most 160"},
		{name: "long display name", in: UpdateProfileInput{DisplayName: strPtr(strings.Repeat("d", 51))}, code: models.CodeValidation, message: "display_name must be at most 50"},
		{name: "taken username", in: UpdateProfileInput{Username: strPtr("taken")}, code: models.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.UserID = alice.ID
			_, err := f.users.UpdateProfile(ctx, tt.in)
			assertCode(t, err, tt.code)
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	p, err := f.users.UpdateProfile(ctx, UpdateProfileInput{UserID: alice.ID, Username: strPtr("alice_2"), Bio: strPtr(" gopher ")})
	require.NoError(t, err)
	assert.Equal(t, "alice_2", p.Username)
	assert.Equal(t, "gopher", p.Bio)
	assert.Equal(t, alice.DisplayName, p.DisplayName, "nil fields are unchanged")
}

func TestUserService_GetProfile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	carol := testutil.CreateUser(t, f.db, "carol")

	require.NoError(t, f.relationships.Follow(ctx, bob.ID, alice.ID))
	require.NoError(t, f.relationships.Follow(ctx, carol.ID, alice.ID))
	require.NoError(t, f.relationships.Follow(ctx, alice.ID, carol.ID))

	p, err := f.users.GetProfile(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.FollowerCount)
	assert.Equal(t, int64(1), p.FollowingCount)
	assert.True(t, p.IsFollowing)
	assert.False(t, p.IsBlocked)

	require.NoError(t, f.relationships.Block(ctx, bob.ID, carol.ID))
	_, err = f.users.GetProfile(ctx, bob.ID, carol.ID)
	assertCode(t, err, models.CodeNotFound)
	_, err = f.users.GetProfile(ctx, carol.ID, bob.ID)
	assertCode(t, err, models.CodeNotFound)

	me, err := f.users.Me(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), me.FollowerCount)
	assert.False(t, me.IsFollowing)
}
