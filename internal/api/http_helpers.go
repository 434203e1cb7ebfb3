package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/telecare/internal/models"
	"github.com/terraincognita07/telecare/internal/services"
	"go.uber.org/zap"
)

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"message": message})
}

// respondServiceError is the only place service errors become HTTP statuses.
func (handler *Handler) respondServiceError(c *fiber.Ctx, err error) error {
	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		return apiError(c, fiber.StatusBadRequest, strings.Join(validation.Fields, "; "))
	case errors.Is(err, services.ErrInvalidTransition):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		return apiError(c, fiber.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrForbidden):
		return apiError(c, fiber.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrAccountInactive):
		return apiError(c, fiber.StatusForbidden, "account inactive")
	case errors.Is(err, services.ErrNotFound):
		return apiError(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, services.ErrConflict):
		return apiError(c, fiber.StatusConflict, "conflict")
	case errors.Is(err, services.ErrTooManyAttempts):
		return apiError(c, fiber.StatusTooManyRequests, "too many attempts")
	default:
		handler.log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Any("request_id", c.Locals("requestid")),
			zap.Error(err),
		)
		return apiError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	raw := strings.TrimSpace(c.Params(name))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return uint(value), nil
}

// ErrorHandler renders errors that escape a handler, such as route misses,
// body limits and invalid path parameters.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return apiError(c, fiberErr.Code, fiberErr.Message)
		}
		log.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
		return apiError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func parseOptionalUintQuery(c *fiber.Ctx, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(value), true
}

func parsePage(c *fiber.Ctx) models.Page {
	return models.NewPage(c.QueryInt("page", 1), c.QueryInt("limit", models.DefaultPageLimit))
}

func paginated(c *fiber.Ctx, data any, page models.Page, total int64) error {
	pages := int64(0)
	if page.Limit > 0 {
		pages = (total + int64(page.Limit) - 1) / int64(page.Limit)
	}
	return c.JSON(listResponse{
		Data: data,
		Pagination: pagination{
			Page:  page.Number,
			Limit: page.Limit,
			Total: total,
			Pages: pages,
		},
	})
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && value
}
