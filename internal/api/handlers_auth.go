package api

import (
	"errors"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/telecare/internal/services"
)

func (handler *Handler) Login(c *fiber.Ctx) error {
	limiterKey := requestLimiterKey(c)
	now := handler.now()
	if blocked, retryAfter := handler.loginLimiter.blocked(limiterKey, now); blocked {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		return handler.respondServiceError(c, services.ErrTooManyAttempts)
	}

	input := loginInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	user, err := handler.auth.Authenticate(c.UserContext(), input.Email, input.Password, c.IP())
	if err != nil {
		var validation *services.ValidationError
		if errors.Is(err, services.ErrInvalidCredentials) || errors.As(err, &validation) {
			handler.loginLimiter.recordFailure(limiterKey, now)
		}
		return handler.respondServiceError(c, err)
	}
	handler.loginLimiter.clear(limiterKey)

	token, expiresAt, err := handler.buildToken(&user, handler.tokenTTL)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"token":     token,
		"expiresAt": expiresAt,
		"user":      user,
	})
}

func (handler *Handler) Me(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	unread, err := handler.notifications.CountUnread(c.UserContext(), user.ID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"user": user, "unreadNotifications": unread})
}

func (handler *Handler) ChangePassword(c *fiber.Ctx) error {
	input := changePasswordInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	if err := handler.auth.ChangePassword(c.UserContext(), currentActor(c), input.CurrentPassword, input.NewPassword); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "password updated"})
}
