package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/telecare/internal/services"
)

func (handler *Handler) ListTemplates(c *fiber.Ctx) error {
	templates, err := handler.templates.List(c.UserContext(), currentActor(c), parseBool(c.Query("favorites")), c.Query("search"))
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(templates)
}

func (handler *Handler) GetTemplate(c *fiber.Ctx) error {
	templateID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	template, err := handler.templates.Get(c.UserContext(), currentActor(c), templateID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(template)
}

func (handler *Handler) CreateTemplate(c *fiber.Ctx) error {
	input := services.TemplateInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	template, err := handler.templates.Create(c.UserContext(), currentActor(c), input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(template)
}

func (handler *Handler) UpdateTemplate(c *fiber.Ctx) error {
	templateID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	input := services.TemplateInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	template, err := handler.templates.Update(c.UserContext(), currentActor(c), templateID, input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(template)
}

func (handler *Handler) DeleteTemplate(c *fiber.Ctx) error {
	templateID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := handler.templates.Delete(c.UserContext(), currentActor(c), templateID); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) AddFavorite(c *fiber.Ctx) error {
	return handler.setFavorite(c, true)
}

func (handler *Handler) RemoveFavorite(c *fiber.Ctx) error {
	return handler.setFavorite(c, false)
}

func (handler *Handler) setFavorite(c *fiber.Ctx, favorite bool) error {
	templateID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := handler.templates.SetFavorite(c.UserContext(), currentActor(c), templateID, favorite); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"templateId": templateID, "isFavorite": favorite})
}
