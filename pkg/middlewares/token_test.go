package middlewares

import (
	"io"
	"net/http/httptest"
	"testing"

	t_token "social_chat_sync/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", JWTMiddleware(), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(TokenActorID).(string))
	})
	return app
}

func TestJWTMiddlewareQueryToken(t *testing.T) {
	signed, err := t_token.GenerateJWT("alice", "test")
	assert.NoError(t, err)

	resp, err := newApp().Test(httptest.NewRequest("GET", "/me?auth="+signed, nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "alice", string(body))
}

func TestJWTMiddlewareBearerHeader(t *testing.T) {
	signed, err := t_token.GenerateJWT("bob", "test")
	assert.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+signed)
	resp, err := newApp().Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTMiddlewareMissingToken(t *testing.T) {
	resp, err := newApp().Test(httptest.NewRequest("GET", "/me", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTMiddlewareInvalidToken(t *testing.T) {
	resp, err := newApp().Test(httptest.NewRequest("GET", "/me?auth=broken", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
