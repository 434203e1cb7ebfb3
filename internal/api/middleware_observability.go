package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestLogger writes one structured line per request.
func (handler *Handler) RequestLogger(c *fiber.Ctx) error {
	started := time.Now()
	err := c.Next()

	status := responseStatus(c, err)
	fields := []zap.Field{
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(started)),
		zap.String("ip", c.IP()),
		zap.Any("request_id", c.Locals("requestid")),
	}
	if actor := currentActor(c); actor.ID != 0 {
		fields = append(fields, zap.Uint("user_id", actor.ID))
	}

	switch {
	case status >= fiber.StatusInternalServerError:
		handler.log.Error("request", fields...)
	case status >= fiber.StatusBadRequest:
		handler.log.Warn("request", fields...)
	default:
		handler.log.Info("request", fields...)
	}
	return err
}

// RequestMetrics labels by route template so that ids do not explode the
// label space.
func (handler *Handler) RequestMetrics(c *fiber.Ctx) error {
	started := time.Now()
	err := c.Next()

	route := "unmatched"
	if matched := c.Route(); matched != nil && matched.Path != "" && matched.Path != "/" {
		route = matched.Path
	}
	status := responseStatus(c, err)

	handler.metrics.RequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
	handler.metrics.RequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(started).Seconds())
	return err
}

// responseStatus accounts for errors the app ErrorHandler has not rendered yet.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}
