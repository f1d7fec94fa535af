package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mattfreire/mentors/internal/models"
)

type SessionHandler struct {
	service sessionApplicationService
}

type sessionApplicationService interface {
	CreateSession(ctx context.Context, actorID int64, mentorID int64) (*models.SessionView, error)
	ListSessions(ctx context.Context, actorID int64, asMentor bool) ([]models.SessionView, error)
	GetSession(ctx context.Context, actorID int64, sessionID int64) (*models.SessionView, error)
	StartSession(ctx context.Context, actorID int64, sessionID int64) (*models.SessionView, error)
	ToggleSession(ctx context.Context, actorID int64, sessionID int64) (*models.SessionView, error)
	EndSession(ctx context.Context, actorID int64, sessionID int64) (*models.SessionView, error)
}

func NewSessionHandler(service sessionApplicationService) *SessionHandler {
	return &SessionHandler{service: service}
}

type createSessionRequest struct {
	MentorID int64 `json:"mentor_id"`
}

func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	userID, err := parseActorID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.MentorID <= 0 {
		return badRequest(c, "mentor_id is required")
	}

	session, err := h.service.CreateSession(c.Context(), userID, req.MentorID)
	if err != nil {
		return mapError(c, err, "Failed to create session")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	userID, err := parseActorID(c)
	if err != nil {
		return unauthorized(c)
	}

	asMentor := false
	switch strings.TrimSpace(c.Query("as")) {
	case "", "client":
	case "mentor":
		asMentor = true
	default:
		return badRequest(c, "as must be client or mentor")
	}

	sessions, err := h.service.ListSessions(c.Context(), userID, asMentor)
	if err != nil {
		return mapError(c, err, "Failed to list sessions")
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	return h.withSession(c, h.service.GetSession, "Failed to load session")
}

func (h *SessionHandler) StartSession(c *fiber.Ctx) error {
	return h.withSession(c, h.service.StartSession, "Failed to start session")
}

// ToggleSession pauses a running session or resumes a paused one.
func (h *SessionHandler) ToggleSession(c *fiber.Ctx) error {
	return h.withSession(c, h.service.ToggleSession, "Failed to update session")
}

func (h *SessionHandler) EndSession(c *fiber.Ctx) error {
	return h.withSession(c, h.service.EndSession, "Failed to end session")
}

func (h *SessionHandler) withSession(
	c *fiber.Ctx,
	op func(ctx context.Context, actorID int64, sessionID int64) (*models.SessionView, error),
	fallback string,
) error {
	userID, err := parseActorID(c)
	if err != nil {
		return unauthorized(c)
	}

	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid session id")
	}

	session, err := op(c.Context(), userID, sessionID)
	if err != nil {
		return mapError(c, err, fallback)
	}

	return c.JSON(fiber.Map{"session": session})
}
