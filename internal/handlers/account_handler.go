package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/mattfreire/mentors/internal/services"
)

type accountApplicationService interface {
	Provision(ctx context.Context, actorID int64) (*services.ProvisionResult, error)
}

type AccountHandler struct {
	service accountApplicationService
}

func NewAccountHandler(service accountApplicationService) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) Provision(c *fiber.Ctx) error {
	userID, err := parseActorID(c)
	if err != nil {
		return unauthorized(c)
	}

	result, err := h.service.Provision(c.Context(), userID)
	if err != nil {
		return mapError(c, err, "Failed to provision account")
	}
	return c.JSON(fiber.Map{"account": result})
}
