package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/telecare/internal/models"
	"github.com/terraincognita07/telecare/internal/services"
)

func (handler *Handler) Stats(c *fiber.Ctx) error {
	stats, err := handler.stats.Overview(c.UserContext())
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(stats)
}

func (handler *Handler) DetailedStats(c *fiber.Ctx) error {
	stats, err := handler.stats.Detailed(c.UserContext())
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(stats)
}

func (handler *Handler) AuditLogs(c *fiber.Ctx) error {
	userID, ok := parseOptionalUintQuery(c, "userId")
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid userId")
	}
	entityID, ok := parseOptionalUintQuery(c, "entityId")
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid entityId")
	}
	from, ok := parseTimeQuery(c.Query("from"), false)
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid from")
	}
	to, ok := parseTimeQuery(c.Query("to"), true)
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid to")
	}

	page := parsePage(c)
	entries, total, err := handler.audit.List(c.UserContext(), models.AuditFilter{
		UserID:     userID,
		Action:     strings.ToUpper(strings.TrimSpace(c.Query("action"))),
		EntityType: strings.TrimSpace(c.Query("entityType")),
		EntityID:   entityID,
		From:       from,
		To:         to,
		Page:       page,
	})
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return paginated(c, entries, page, total)
}

// parseTimeQuery accepts RFC 3339 or a bare date. A bare "to" date covers the
// whole day.
func parseTimeQuery(raw string, endOfDay bool) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed, true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return &parsed, true
}

func (handler *Handler) ListUsers(c *fiber.Ctx) error {
	filter := models.UserFilter{Search: strings.TrimSpace(c.Query("search")), Page: parsePage(c)}
	if raw := c.Query("role"); raw != "" {
		role, ok := models.ParseRole(raw)
		if !ok {
			return apiError(c, fiber.StatusBadRequest, "invalid role")
		}
		filter.Role = role
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseUserStatus(raw)
		if !ok {
			return apiError(c, fiber.StatusBadRequest, "invalid status")
		}
		filter.Status = status
	}

	users, total, err := handler.users.List(c.UserContext(), filter)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return paginated(c, users, filter.Page, total)
}

func (handler *Handler) CreateUser(c *fiber.Ctx) error {
	input := services.CreateUserInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	user, temporaryPassword, err := handler.users.Create(c.UserContext(), currentActor(c), input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	response := fiber.Map{"user": user}
	if temporaryPassword != "" {
		response["temporaryPassword"] = temporaryPassword
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}

func (handler *Handler) UpdateUser(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	input := services.UpdateUserInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	user, err := handler.users.Update(c.UserContext(), currentActor(c), userID, input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(user)
}

func (handler *Handler) DeleteUser(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := handler.users.Delete(c.UserContext(), currentActor(c), userID); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) ResetUserPassword(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	temporaryPassword, err := handler.users.ResetPassword(c.UserContext(), currentActor(c), userID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"temporaryPassword": temporaryPassword})
}
