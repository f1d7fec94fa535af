package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/mattfreire/mentors/internal/models"
	"github.com/mattfreire/mentors/internal/services"
)

type reviewApplicationService interface {
	SubmitReview(ctx context.Context, actorID int64, sessionID int64, input services.SubmitReviewInput) (*models.Review, error)
}

type ReviewHandler struct {
	service reviewApplicationService
}

func NewReviewHandler(service reviewApplicationService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

type submitReviewRequest struct {
	Rating      *int   `json:"rating"`
	Description string `json:"description"`
}

func (h *ReviewHandler) SubmitReview(c *fiber.Ctx) error {
	userID, err := parseActorID(c)
	if err != nil {
		return unauthorized(c)
	}

	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid session id")
	}

	var req submitReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	review, err := h.service.SubmitReview(c.Context(), userID, sessionID, services.SubmitReviewInput{
		Rating:      req.Rating,
		Description: req.Description,
	})
	if err != nil {
		return mapError(c, err, "Failed to submit review")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"review": review})
}
