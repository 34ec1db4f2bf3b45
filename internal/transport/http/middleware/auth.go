package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/labassist/backend/internal/config"
)

// AdminAuth guards operator endpoints. An empty admin key disables the check.
func AdminAuth(cfg *config.Config) fiber.Handler {
	return tokenAuth(cfg.Auth.AdminAPIKey, "X-Admin-Token")
}

// AgentAuth guards report submission. An empty agent token disables the check.
func AgentAuth(cfg *config.Config) fiber.Handler {
	return tokenAuth(cfg.Auth.AgentToken, "X-Agent-Token")
}

func tokenAuth(expected, header string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expected == "" {
			return c.Next()
		}

		token := c.Get(header)
		if token == "" {
			token = bearerToken(c.Get("Authorization"))
		}
		// Browsers cannot set headers on a websocket handshake.
		if token == "" && strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket") {
			token = c.Query("token")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		return c.Next()
	}
}

func bearerToken(auth string) string {
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}
