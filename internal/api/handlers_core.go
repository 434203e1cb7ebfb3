package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "time": handler.now().UTC()})
}

func (handler *Handler) Metrics() fiber.Handler {
	return adaptor.HTTPHandler(handler.metrics.Handler())
}
