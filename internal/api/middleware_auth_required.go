package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/telecare/internal/services"
)

// AuthRequired resolves the bearer token to an active user. The role comes
// from the database, not the token, so demotions apply immediately.
func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	return handler.authenticate(c, bearerToken(c))
}

func (handler *Handler) authenticate(c *fiber.Ctx, rawToken string) error {
	claims, err := handler.parseToken(rawToken)
	if err != nil {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	user, err := handler.auth.ResolveActor(c.UserContext(), claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return apiError(c, fiber.StatusUnauthorized, "unauthorized")
		}
		return handler.respondServiceError(c, err)
	}

	c.Locals(contextUserKey, &user)
	c.Locals(contextActorKey, services.Actor{ID: user.ID, Role: user.Role, IP: c.IP()})
	return c.Next()
}
