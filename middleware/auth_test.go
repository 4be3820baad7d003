package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pare/database"
	"pare/models"
)

const secret = "a-test-secret-of-at-least-32-characters"

type fakeUsers map[uint]*models.User

func (f fakeUsers) ByID(_ context.Context, id uint) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return u, nil
}

func TestParseToken(t *testing.T) {
	token, err := GenerateToken(secret, time.Hour, &models.User{ID: 7, IsAdmin: true})
	require.NoError(t, err)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "7", claims.Subject)

	_, err = ParseToken("another-secret-of-at-least-32-characters", token)
	assert.Error(t, err)

	expired, err := GenerateToken(secret, -time.Minute, &models.User{ID: 7})
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 7}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = ParseToken(secret, noExpiry)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	users := fakeUsers{
		3: {ID: 3, IsActive: true},
		4: {ID: 4, IsActive: true, IsAdmin: true},
		5: {ID: 5, IsActive: false},
		6: {ID: 6, IsActive: true},
	}

	app := fiber.New()
	app.Get("/me", AuthMiddleware(secret, users), func(c *fiber.Ctx) error {
		id, err := GetUserID(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": id, "admin": IsAdmin(c)})
	})
	app.Get("/admin", AuthMiddleware(secret, users), AdminOnly, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	user, err := GenerateToken(secret, time.Hour, &models.User{ID: 3})
	require.NoError(t, err)
	admin, err := GenerateToken(secret, time.Hour, &models.User{ID: 4, IsAdmin: true})
	require.NoError(t, err)
	inactive, err := GenerateToken(secret, time.Hour, &models.User{ID: 5})
	require.NoError(t, err)
	demoted, err := GenerateToken(secret, time.Hour, &models.User{ID: 6, IsAdmin: true})
	require.NoError(t, err)
	deleted, err := GenerateToken(secret, time.Hour, &models.User{ID: 99})
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/me", "", fiber.StatusUnauthorized},
		{"wrong scheme", "/me", "Token " + user, fiber.StatusUnauthorized},
		{"garbage token", "/me", "Bearer abc.def.ghi", fiber.StatusUnauthorized},
		{"valid token", "/me", "Bearer " + user, fiber.StatusOK},
		{"non admin", "/admin", "Bearer " + user, fiber.StatusForbidden},
		{"admin", "/admin", "Bearer " + admin, fiber.StatusNoContent},
		{"deactivated account", "/me", "Bearer " + inactive, fiber.StatusUnauthorized},
		{"unknown account", "/me", "Bearer " + deleted, fiber.StatusUnauthorized},
		{"admin claim of a demoted account", "/admin", "Bearer " + demoted, fiber.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestRateLimitSkipsHealth(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimit(RateLimitConfig{Max: 1, Window: time.Minute}))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api/ping", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/api/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}
