package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/telecare/internal/services"
)

func (handler *Handler) UpdateMedicalRecord(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	input := services.MedicalRecordInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	record, err := handler.sessions.UpdateMedicalRecord(c.UserContext(), currentActor(c), sessionID, input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(record)
}

func (handler *Handler) AddVitalSign(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	input := services.VitalSignInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	vital, err := handler.sessions.AddVitalSign(c.UserContext(), currentActor(c), sessionID, input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(vital)
}

func (handler *Handler) ListVitalSigns(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	vitals, err := handler.sessions.ListVitalSigns(c.UserContext(), currentActor(c), sessionID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(vitals)
}

func (handler *Handler) AddNote(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	input := noteInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	note, err := handler.sessions.AddNote(c.UserContext(), currentActor(c), sessionID, input.Content)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

func (handler *Handler) ListNotes(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	notes, err := handler.sessions.ListNotes(c.UserContext(), currentActor(c), sessionID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(notes)
}

func (handler *Handler) ApplySessionTemplate(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "sessionId")
	if err != nil {
		return err
	}
	input := applyTemplateInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	if input.TemplateID == 0 {
		return apiError(c, fiber.StatusBadRequest, "templateId is required")
	}
	instance, err := handler.templates.ApplyToSession(c.UserContext(), currentActor(c), sessionID, input.TemplateID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(instance)
}

func (handler *Handler) GetSessionTemplate(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "sessionId")
	if err != nil {
		return err
	}
	instance, err := handler.templates.GetSessionTemplate(c.UserContext(), currentActor(c), sessionID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(instance)
}

func (handler *Handler) UpdateSessionTemplate(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "sessionId")
	if err != nil {
		return err
	}
	input := services.SessionTemplateProgressInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	instance, err := handler.templates.UpdateSessionTemplate(c.UserContext(), currentActor(c), sessionID, input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(instance)
}

func (handler *Handler) RemoveSessionTemplate(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "sessionId")
	if err != nil {
		return err
	}
	if err := handler.templates.RemoveFromSession(c.UserContext(), currentActor(c), sessionID); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) EvaluateSessionTemplate(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "sessionId")
	if err != nil {
		return err
	}
	input := services.EvaluationInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	instance, err := handler.templates.Evaluate(c.UserContext(), currentActor(c), sessionID, input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(instance)
}
