package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/telecare/internal/models"
	"github.com/terraincognita07/telecare/internal/services"
)

const (
	contextUserKey  = "current_user"
	contextActorKey = "current_actor"
)

func currentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(contextUserKey).(*models.User)
	return user, ok
}

func currentActor(c *fiber.Ctx) services.Actor {
	actor, _ := c.Locals(contextActorKey).(services.Actor)
	return actor
}

// RequireRoles must run after AuthRequired.
func RequireRoles(roles ...models.Role) fiber.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		if _, ok := allowed[currentActor(c).Role]; !ok {
			return apiError(c, fiber.StatusForbidden, "forbidden")
		}
		return c.Next()
	}
}
