package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/telecare/internal/models"
)

func (handler *Handler) ListNotifications(c *fiber.Ctx) error {
	page := parsePage(c)
	notifications, total, err := handler.notifications.List(c.UserContext(), models.NotificationFilter{
		UserID:     currentActor(c).ID,
		UnreadOnly: parseBool(c.Query("unread")),
		Page:       page,
	})
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return paginated(c, notifications, page, total)
}

func (handler *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	notificationID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := handler.notifications.MarkRead(c.UserContext(), currentActor(c), notificationID); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"id": notificationID, "isRead": true})
}

func (handler *Handler) MarkAllNotificationsRead(c *fiber.Ctx) error {
	updated, err := handler.notifications.MarkAllRead(c.UserContext(), currentActor(c))
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"updated": updated})
}
