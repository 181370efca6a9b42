package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"murmur/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestServer_AuthRequired(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice")

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Valid Token",
			authHeader:     "Bearer " + alice.ExternalID,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Missing Header",
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   models.CodeUnauthenticated,
		},
		{
			name:           "Malformed Bearer Format",
			authHeader:     "Token " + alice.ExternalID,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   models.CodeUnauthenticated,
		},
		{
			name:           "Untrusted Token",
			authHeader:     "Bearer invalid",
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   models.CodeUnauthenticated,
		},
		{
			name:           "Trusted Token Without Local User",
			authHeader:     "Bearer user_not_synced_yet",
			expectedStatus: http.StatusNotFound,
			expectedCode:   models.CodeUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
			if tt.authHeader != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.authHeader)
			}
			resp := env.raw(req)
			if tt.expectedCode == "" {
				requireStatus(t, resp, tt.expectedStatus)
				body := decode[models.Profile](t, resp)
				assert.Equal(t, alice.ID, body.ID)
				return
			}
			assertError(t, resp, tt.expectedStatus, tt.expectedCode)
		})
	}
}

func TestServer_DeletedUserIsNotResolved(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice")
	env.db.Model(&models.User{}).Where("id = ?", alice.ID).Update("is_deleted", true)

	assertError(t, env.call(http.MethodGet, "/api/users/me", alice, nil), fiber.StatusNotFound, models.CodeUserNotFound)
}
