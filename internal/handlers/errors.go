package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/mattfreire/mentors/internal/apperr"
)

func parseActorID(c *fiber.Ctx) (int64, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(userIDStr, 10, 64)
}

func parseIDParam(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

// mapError turns a service error into a JSON response. Domain errors carry a
// reason safe to show to users; anything else is logged and hidden.
func mapError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput), errors.Is(err, apperr.ErrAuthentication):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": apperr.Reason(err, "Invalid request")})
	case errors.Is(err, apperr.ErrPermission):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": apperr.Reason(err, "Forbidden")})
	case errors.Is(err, apperr.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": apperr.Reason(err, "Not found")})
	case errors.Is(err, apperr.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": apperr.Reason(err, "Already exists")})
	case errors.Is(err, apperr.ErrInvalidState):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": apperr.Reason(err, "Invalid state")})
	default:
		slog.Error(fallback, "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}
