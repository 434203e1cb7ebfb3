package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/telecare/internal/services"
)

func (handler *Handler) CreateSession(c *fiber.Ctx) error {
	input := services.CreateSessionInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	session, err := handler.sessions.Create(c.UserContext(), currentActor(c), input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

func (handler *Handler) ListSessions(c *fiber.Ctx) error {
	page := parsePage(c)
	sessions, total, err := handler.sessions.List(c.UserContext(), currentActor(c), services.ListSessionsInput{
		Statuses: splitCSV(c.Query("status")),
		Priority: c.Query("priority"),
		Sort:     c.Query("sort"),
		Page:     page,
	})
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return paginated(c, sessions, page, total)
}

func (handler *Handler) GetSession(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	session, err := handler.sessions.Get(c.UserContext(), currentActor(c), sessionID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(session)
}

func (handler *Handler) UpdateSession(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	input := services.UpdateSessionInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	session, err := handler.sessions.Update(c.UserContext(), currentActor(c), sessionID, input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(session)
}

func (handler *Handler) AssignSession(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	input := assignInput{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return apiError(c, fiber.StatusBadRequest, "invalid input")
		}
	}
	session, err := handler.sessions.Assign(c.UserContext(), currentActor(c), sessionID, input.DoctorID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(session)
}

func (handler *Handler) DeleteSession(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := handler.sessions.Delete(c.UserContext(), currentActor(c), sessionID); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
