package middleware

import (
	"github.com/coursevault/api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// RequireRole ensures the authenticated user holds one of the given roles.
// Must run after AuthMiddleware.Required.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := GetUser(c)
		if !ok || user == nil {
			return response.Unauthorized(c, "Authentication required")
		}

		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}

		return response.Forbidden(c, "Insufficient permissions")
	}
}
