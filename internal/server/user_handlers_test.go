package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"murmur/internal/models"
	"murmur/internal/webhook"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateMyProfile(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice")
	env.user("bob")

	tests := []struct {
		name   string
		body   fiber.Map
		status int
		code   string
	}{
		{"short username", fiber.Map{"username": "ab"}, fiber.StatusBadRequest, models.CodeValidation},
		{"bad characters", fiber.Map{"username": "al ice!"}, fiber.StatusBadRequest, models.CodeValidation},
		{"long bio", fiber.Map{"bio": string(bytes.Repeat([]byte("x"), 161))}, fiber.StatusBadRequest, models.CodeValidation},
		{"taken", fiber.Map{"username": "bob"}, fiber.StatusConflict, models.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, env.call(http.MethodPut, "/api/users/me", alice, tt.body), tt.status, tt.code)
		})
	}

	resp := env.call(http.MethodPut, "/api/users/me", alice, fiber.Map{"username": "alice_2", "bio": "hi"})
	requireStatus(t, resp, fiber.StatusOK)
	profile := decode[models.Profile](t, resp)
	assert.Equal(t, "alice_2", profile.Username)
	assert.Equal(t, "hi", profile.Bio)
}

func TestGetUserProfile(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice")
	bob := env.user("bob")
	requireStatus(t, env.call(http.MethodPost, fmt.Sprintf("/api/users/%d/follow", bob.ID), alice, nil), fiber.StatusOK)

	resp := env.call(http.MethodGet, fmt.Sprintf("/api/users/%d", bob.ID), alice, nil)
	requireStatus(t, resp, fiber.StatusOK)
	profile := decode[models.Profile](t, resp)
	assert.EqualValues(t, 1, profile.FollowerCount)
	assert.True(t, profile.IsFollowing)
	assert.False(t, profile.IsBlocked)

	assertError(t, env.call(http.MethodGet, "/api/users/9999", alice, nil), fiber.StatusNotFound, models.CodeNotFound)
}

func webhookRequest(t *testing.T, secret string, at time.Time, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if secret != "" {
		h, err := webhook.Sign(secret, "msg_test", at, body)
		require.NoError(t, err)
		h.Apply(req.Header)
	}
	return req
}

func userCreatedBody(t *testing.T, id, username string) []byte {
	t.Helper()
	body, err := json.Marshal(fiber.Map{
		"type": webhook.EventUserCreated,
		"data": fiber.Map{"id": id, "username": username, "first_name": "Dana", "last_name": "Scully"},
	})
	require.NoError(t, err)
	return body
}

func TestIdentityWebhook_RejectsBadDeliveries(t *testing.T) {
	env := newTestEnv(t)
	body := userCreatedBody(t, "user_2abc", "dana")
	otherSecret := "whsec_" + "b3RoZXItc2VjcmV0LWtleQ=="

	tampered := webhookRequest(t, testWebhookSecret, time.Now(), body)
	tampered.Header.Set(webhook.HeaderSignature, "v1,AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"bad signature", tampered},
		{"stale timestamp", webhookRequest(t, testWebhookSecret, time.Now().Add(-time.Hour), body)},
		{"future timestamp", webhookRequest(t, testWebhookSecret, time.Now().Add(time.Hour), body)},
		{"wrong secret", webhookRequest(t, otherSecret, time.Now(), body)},
		{"missing headers", webhookRequest(t, "", time.Now(), body)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, env.raw(tt.req), fiber.StatusBadRequest, models.CodeValidation)
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestIdentityWebhook_SyncsUsers(t *testing.T) {
	env := newTestEnv(t)

	resp := env.raw(webhookRequest(t, testWebhookSecret, time.Now(), userCreatedBody(t, "user_2abc", "dana")))
	requireStatus(t, resp, fiber.StatusOK)

	var user models.User
	require.NoError(t, env.db.Where("external_id = ?", "user_2abc").First(&user).Error)
	assert.Equal(t, "dana", user.Username)
	assert.Equal(t, "Dana Scully", user.DisplayName)

	// The synced user can now authenticate.
	requireStatus(t, env.call(http.MethodGet, "/api/users/me", &user, nil), fiber.StatusOK)

	unknown, err := json.Marshal(fiber.Map{"type": "session.created", "data": fiber.Map{"id": "sess_1"}})
	require.NoError(t, err)
	requireStatus(t, env.raw(webhookRequest(t, testWebhookSecret, time.Now(), unknown)), fiber.StatusOK)

	garbage := []byte(`{"data":{}}`)
	assertError(t, env.raw(webhookRequest(t, testWebhookSecret, time.Now(), garbage)), fiber.StatusBadRequest, models.CodeValidation)

	deleted, err := json.Marshal(fiber.Map{"type": webhook.EventUserDeleted, "data": fiber.Map{"id": "user_2abc", "deleted": true}})
	require.NoError(t, err)
	requireStatus(t, env.raw(webhookRequest(t, testWebhookSecret, time.Now(), deleted)), fiber.StatusOK)
	assertError(t, env.call(http.MethodGet, "/api/users/me", &user, nil), fiber.StatusNotFound, models.CodeUserNotFound)
}
