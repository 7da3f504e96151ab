package middleware

import (
	"lifeintheuk/backend/config"
	"lifeintheuk/backend/models"
	"lifeintheuk/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const userIDKey = "user_id"

// RequireAuth resolves the session cookie to exactly one existing user before
// the handler runs. The identity is stored in the request locals once;
// handlers read it via CurrentUserID instead of re-deriving it.
func RequireAuth(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(utils.SessionCookieName)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		userID, err := utils.ParseSessionToken(token, cfg)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		// A valid token for a deleted user is still not an identity.
		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		c.Locals(userIDKey, user.ID)
		return c.Next()
	}
}

// CurrentUserID returns the identity resolved by RequireAuth.
func CurrentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(userIDKey).(uint)
	return id
}
