package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/peerflow-api/internal/utils"
)

// VerifyFunc verifies a bearer token and returns its claims. In production
// this is backed by the authkeys cache; tests substitute a stub.
type VerifyFunc func(c *fiber.Ctx, token string) (jwt.MapClaims, error)

// AuthProtected returns a middleware that validates bearer tokens through the
// auth service's public key cache and stores the caller's identity in locals.
func AuthProtected(verify VerifyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, err := verify(c, tokenString)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		if id, ok := claims["id"].(string); ok && id != "" {
			c.Locals("user_id", id)
		}
		if role, ok := claims["role"].(string); ok && role != "" {
			c.Locals("user_role", strings.ToLower(strings.TrimSpace(role)))
		}

		return c.Next()
	}
}
