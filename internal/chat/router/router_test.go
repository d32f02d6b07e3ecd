package router

import (
	"net/http/httptest"
	"testing"

	"social_chat_sync/internal/chat/app"
	"social_chat_sync/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func newApp() *fiber.App {
	r := fiber.New()
	RegisterRoutes(r, app.NewChatWebsocketHandler(app.Dependencies{}))
	return r
}

func TestHealthz(t *testing.T) {
	resp, err := newApp().Test(httptest.NewRequest("GET", "/healthz", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestWebsocketRequiresToken(t *testing.T) {
	resp, err := newApp().Test(httptest.NewRequest("GET", "/ws", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	signed, err := token.GenerateJWT("alice", "test")
	assert.NoError(t, err)

	resp, err := newApp().Test(httptest.NewRequest("GET", "/ws?auth="+signed, nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
