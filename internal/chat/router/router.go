package router

import (
	"context"

	"social_chat_sync/internal/chat/app"
	"social_chat_sync/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册 websocket bridge 路由
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler) {
	r.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	r.Get("/ws", middlewares.JWTMiddleware(), requireUpgrade, websocket.New(func(c *websocket.Conn) {
		// 每條連線即一個登入 session
		chatWebsocket.HandleConnection(context.Background(), c)
	}))
}

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
