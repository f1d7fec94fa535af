package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/mattfreire/mentors/internal/apperr"
	"github.com/mattfreire/mentors/internal/models"
	"github.com/mattfreire/mentors/internal/services"
)

const stripeSignatureHeader = "Stripe-Signature"

type paymentApplicationService interface {
	CreateCheckout(ctx context.Context, actorID int64, sessionID int64) (string, error)
	HandleSettlement(ctx context.Context, payload []byte, signatureHeader string) (services.SettlementOutcome, error)
	ConnectLink(ctx context.Context, actorID int64) (string, error)
	PortalLink(ctx context.Context, actorID int64) (string, error)
	Balance(ctx context.Context, actorID int64) (*models.AccountBalance, error)
	Payouts(ctx context.Context, actorID int64) ([]models.Payout, error)
}

type PaymentHandler struct {
	service paymentApplicationService
}

func NewPaymentHandler(service paymentApplicationService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

type checkoutRequest struct {
	SessionID int64 `json:"session_id"`
}

func (h *PaymentHandler) CreateCheckout(c *fiber.Ctx) error {
	userID, err := parseActorID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.SessionID <= 0 {
		return badRequest(c, "session_id is required")
	}

	url, err := h.service.CreateCheckout(c.Context(), userID, req.SessionID)
	if err != nil {
		return mapError(c, err, "Failed to create checkout")
	}

	return c.JSON(fiber.Map{"url": url})
}

func (h *PaymentHandler) ConnectLink(c *fiber.Ctx) error {
	userID, err := parseActorID(c)
	if err != nil {
		return unauthorized(c)
	}

	url, err := h.service.ConnectLink(c.Context(), userID)
	if err != nil {
		return mapError(c, err, "Failed to create onboarding link")
	}

	return c.JSON(fiber.Map{"url": url})
}

func (h *PaymentHandler) PortalLink(c *fiber.Ctx) error {
	userID, err := parseActorID(c)
	if err != nil {
		return unauthorized(c)
	}

	url, err := h.service.PortalLink(c.Context(), userID)
	if err != nil {
		return mapError(c, err, "Failed to create billing portal link")
	}

	return c.JSON(fiber.Map{"url": url})
}

func (h *PaymentHandler) Balance(c *fiber.Ctx) error {
	userID, err := parseActorID(c)
	if err != nil {
		return unauthorized(c)
	}

	balance, err := h.service.Balance(c.Context(), userID)
	if err != nil {
		return mapError(c, err, "Failed to load balance")
	}

	return c.JSON(fiber.Map{"balance": balance})
}

func (h *PaymentHandler) Payouts(c *fiber.Ctx) error {
	userID, err := parseActorID(c)
	if err != nil {
		return unauthorized(c)
	}

	payouts, err := h.service.Payouts(c.Context(), userID)
	if err != nil {
		return mapError(c, err, "Failed to load payouts")
	}

	return c.JSON(fiber.Map{"payouts": payouts})
}

// Webhook receives settlement notifications from the processor. Only a
// failed signature check answers 400. Events that verified but cannot be
// decoded or applied are acknowledged so the processor stops retrying;
// storage failures answer 500 so it retries.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	outcome, err := h.service.HandleSettlement(c.Context(), c.Body(), c.Get(stripeSignatureHeader))
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"status": outcome})
	case errors.Is(err, apperr.ErrAuthentication):
		slog.Error("payment webhook signature rejected", "remote_ip", c.IP(), "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid webhook signature"})
	case errors.Is(err, apperr.ErrInvalidInput), errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrInvalidState):
		slog.Error("payment webhook could not be applied", "remote_ip", c.IP(), "error", err)
		return c.JSON(fiber.Map{"status": "rejected"})
	default:
		slog.Error("payment webhook failed", "remote_ip", c.IP(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process webhook"})
	}
}
