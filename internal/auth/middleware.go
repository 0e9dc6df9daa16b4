package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// RequireBearer verifies the bearer token on every mutation and agent
// endpoint, injecting the resolved user id into the request context. The
// WebSocket subscribe upgrade accepts the token via a query parameter too
// — browsers can't set arbitrary headers on the handshake request.
func RequireBearer(v *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization token",
			})
		}

		claims, err := v.Verify(token)
		if err != nil {
			if err == ErrExpiredToken {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "token expired",
					"code":  "TOKEN_EXPIRED",
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		c.Locals("userId", claims.UserID)
		c.Locals("displayName", claims.DisplayName)
		c.Locals("claims", claims)
		return c.Next()
	}
}

func extractToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

// UserID reads the authenticated user id a preceding RequireBearer call
// set in context.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("userId").(string)
	return id
}
