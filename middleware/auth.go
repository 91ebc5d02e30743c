// middleware/auth.go
package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"table-session-bot/models"
	"table-session-bot/services"
)

const (
	// HeaderUserID carries the caller's platform user id.
	HeaderUserID = "X-User-ID"

	localExternalID = "external_id"
	localUser       = "user"
)

// UserContextMiddleware reads the caller's platform id from X-User-ID. The
// account itself is not required to exist yet; see LoadUser.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(HeaderUserID)
		externalID, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || externalID == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or malformed X-User-ID",
			})
		}
		c.Locals(localExternalID, externalID)
		return c.Next()
	}
}

// LoadUser resolves the caller to a known account. Callers who never sent
// /start are rejected.
func LoadUser(users *services.UserService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		externalID, ok := ExternalID(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing caller identity"})
		}
		user, err := users.GetUser(c.UserContext(), externalID)
		if err != nil {
			return err
		}
		if user == nil {
			log.WithField("external_id", externalID).Info("[USER_CTX] unknown caller")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "unknown user, send /start first",
			})
		}
		c.Locals(localUser, user)
		return c.Next()
	}
}

// RequireMaster lets through masters and admins.
func RequireMaster() fiber.Handler {
	return requireRole("master", func(u *models.User) bool { return u.IsMaster || u.IsAdmin })
}

func RequireAdmin() fiber.Handler {
	return requireRole("admin", func(u *models.User) bool { return u.IsAdmin })
}

func requireRole(role string, allowed func(*models.User) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || !allowed(user) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": role + " role required",
			})
		}
		return c.Next()
	}
}

// ExternalID returns the platform id set by UserContextMiddleware.
func ExternalID(c *fiber.Ctx) (int64, bool) {
	id, ok := c.Locals(localExternalID).(int64)
	return id, ok
}

// CurrentUser returns the account set by LoadUser, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUser).(*models.User)
	return user
}
