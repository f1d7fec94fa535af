package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/mattfreire/mentors/internal/models"
	"github.com/mattfreire/mentors/internal/services"
)

type mentorApplicationService interface {
	ListMentors(ctx context.Context) ([]models.MentorProfile, error)
	GetMentor(ctx context.Context, mentorID int64) (*models.MentorProfile, error)
	GetOwnProfile(ctx context.Context, actorID int64) (*models.Mentor, error)
	UpdateOwnProfile(ctx context.Context, actorID int64, input services.UpdateMentorInput) (*models.Mentor, error)
}

type MentorHandler struct {
	service mentorApplicationService
}

func NewMentorHandler(service mentorApplicationService) *MentorHandler {
	return &MentorHandler{service: service}
}

type updateMentorRequest struct {
	Title *string `json:"title"`
	Bio   *string `json:"bio"`
	Rate  *int64  `json:"rate"`
}

func (h *MentorHandler) ListMentors(c *fiber.Ctx) error {
	mentors, err := h.service.ListMentors(c.Context())
	if err != nil {
		return mapError(c, err, "Failed to list mentors")
	}
	return c.JSON(fiber.Map{"mentors": mentors})
}

func (h *MentorHandler) GetMentor(c *fiber.Ctx) error {
	mentorID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid mentor id")
	}

	mentor, err := h.service.GetMentor(c.Context(), mentorID)
	if err != nil {
		return mapError(c, err, "Failed to load mentor")
	}
	return c.JSON(fiber.Map{"mentor": mentor})
}

func (h *MentorHandler) GetOwnProfile(c *fiber.Ctx) error {
	userID, err := parseActorID(c)
	if err != nil {
		return unauthorized(c)
	}

	mentor, err := h.service.GetOwnProfile(c.Context(), userID)
	if err != nil {
		return mapError(c, err, "Failed to load mentor profile")
	}
	return c.JSON(fiber.Map{"mentor": mentor})
}

func (h *MentorHandler) UpdateOwnProfile(c *fiber.Ctx) error {
	userID, err := parseActorID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req updateMentorRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	mentor, err := h.service.UpdateOwnProfile(c.Context(), userID, services.UpdateMentorInput{
		Title: req.Title,
		Bio:   req.Bio,
		Rate:  req.Rate,
	})
	if err != nil {
		return mapError(c, err, "Failed to update mentor profile")
	}
	return c.JSON(fiber.Map{"mentor": mentor})
}
