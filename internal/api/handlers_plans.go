package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/telecare/internal/services"
)

func (handler *Handler) CreatePlan(c *fiber.Ctx) error {
	input := services.CreatePlanInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	if input.SessionID == 0 {
		return apiError(c, fiber.StatusBadRequest, "sessionId is required")
	}
	plan, err := handler.plans.Create(c.UserContext(), currentActor(c), input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(plan)
}

func (handler *Handler) GetPlan(c *fiber.Ctx) error {
	planID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	plan, err := handler.plans.Get(c.UserContext(), currentActor(c), planID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(plan)
}

func (handler *Handler) GetSessionPlan(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "sessionId")
	if err != nil {
		return err
	}
	plan, err := handler.plans.GetBySession(c.UserContext(), currentActor(c), sessionID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(plan)
}

func (handler *Handler) UpdatePlan(c *fiber.Ctx) error {
	planID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	input := services.UpdatePlanInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	plan, err := handler.plans.Update(c.UserContext(), currentActor(c), planID, input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(plan)
}

func (handler *Handler) DeletePlan(c *fiber.Ctx) error {
	planID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := handler.plans.Delete(c.UserContext(), currentActor(c), planID); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) AddPlanStep(c *fiber.Ctx) error {
	planID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	input := stepInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	step, err := handler.plans.AddStep(c.UserContext(), currentActor(c), planID, input.Description)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(step)
}

func (handler *Handler) UpdatePlanStep(c *fiber.Ctx) error {
	planID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	stepID, err := parseIDParam(c, "stepId")
	if err != nil {
		return err
	}
	input := services.UpdateStepInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	step, err := handler.plans.UpdateStep(c.UserContext(), currentActor(c), planID, stepID, input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(step)
}
