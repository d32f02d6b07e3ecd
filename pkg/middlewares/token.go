package middlewares

import (
	"strings"

	t_token "social_chat_sync/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenActorID actor parsed from the token, set c.locals name
	TokenActorID = "ActorID"
)

// JWTMiddleware validates the JWT from query, cookie or Authorization header
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Query(QueryToken)

		// 如果查詢參數中沒有 token，則嘗試從 Cookie 中獲取
		if tokenStr == "" {
			tokenStr = c.Cookies(CookieToken)
		}
		if tokenStr == "" {
			tokenStr = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		}

		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := t_token.ParseJWT(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenActorID, claims.ActorID)
		return c.Next()
	}
}
