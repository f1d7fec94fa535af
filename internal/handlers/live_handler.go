package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/mattfreire/mentors/internal/models"
	"github.com/mattfreire/mentors/internal/services"
	livews "github.com/mattfreire/mentors/internal/websocket"
	"github.com/mattfreire/mentors/pkg/utils"
)

const snapshotAction = "snapshot"

type sessionViewer interface {
	GetSession(ctx context.Context, actorID int64, sessionID int64) (*models.SessionView, error)
}

// LiveHandler streams session updates to the two participants over a socket.
type LiveHandler struct {
	sessions  sessionViewer
	hub       *livews.Hub
	jwtSecret string
}

func NewLiveHandler(sessions sessionViewer, hub *livews.Hub, jwtSecret string) *LiveHandler {
	return &LiveHandler{sessions: sessions, hub: hub, jwtSecret: jwtSecret}
}

// WebSocketAuth runs before the upgrade. Browsers cannot set headers on a
// socket handshake, so the token may also arrive as ?token=.
func (h *LiveHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}
	actorID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return unauthorized(c)
	}

	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid session id")
	}

	view, err := h.sessions.GetSession(c.Context(), actorID, sessionID)
	if err != nil {
		return mapError(c, err, "Failed to load session")
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("session_id", sessionID)
	c.Locals("session_view", view)
	return c.Next()
}

func (h *LiveHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	sessionID, _ := conn.Locals("session_id").(int64)
	client := livews.NewClient(h.hub, conn, sessionID, userID)

	var initial *services.LiveUpdate
	if view, ok := conn.Locals("session_view").(*models.SessionView); ok {
		update := snapshot(view)
		initial = &update
	}
	if !h.hub.Register(client, initial) {
		// hub is shutting down
		_ = conn.Close()
		return
	}
	go client.WritePump()
	client.ReadPump()
}

func snapshot(view *models.SessionView) services.LiveUpdate {
	event := services.EventSessionUpdated
	if view.Completed {
		event = services.EventSessionEnded
	}
	return services.LiveUpdate{Event: event, Action: snapshotAction, Session: *view}
}

func (h *LiveHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}
