package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/mattfreire/mentors/internal/config"
	"github.com/mattfreire/mentors/internal/handlers"
	"github.com/mattfreire/mentors/internal/middleware"
	"github.com/samber/do/v2"
)

func RegisterRoutes(app *fiber.App, injector do.Injector) error {
	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return err
	}
	sessionHandler, err := do.Invoke[*handlers.SessionHandler](injector)
	if err != nil {
		return err
	}
	reviewHandler, err := do.Invoke[*handlers.ReviewHandler](injector)
	if err != nil {
		return err
	}
	paymentHandler, err := do.Invoke[*handlers.PaymentHandler](injector)
	if err != nil {
		return err
	}
	accountHandler, err := do.Invoke[*handlers.AccountHandler](injector)
	if err != nil {
		return err
	}
	mentorHandler, err := do.Invoke[*handlers.MentorHandler](injector)
	if err != nil {
		return err
	}
	liveHandler, err := do.Invoke[*handlers.LiveHandler](injector)
	if err != nil {
		return err
	}

	api := app.Group("/api")

	// The processor signs webhooks instead of sending a bearer token.
	api.Post("/payments/webhook", paymentHandler.Webhook)

	// Socket handshakes authenticate inside WebSocketAuth.
	api.Get("/v1/sessions/:id/live", liveHandler.WebSocketAuth, websocket.New(liveHandler.HandleWebSocket))

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	accounts := authProtected.Group("/accounts")
	accounts.Post("/provision", accountHandler.Provision)

	mentors := authProtected.Group("/mentors")
	mentors.Get("", mentorHandler.ListMentors)
	mentors.Get("/me", mentorHandler.GetOwnProfile)
	mentors.Put("/me", mentorHandler.UpdateOwnProfile)
	mentors.Get("/:id", mentorHandler.GetMentor)

	sessions := authProtected.Group("/sessions")
	sessions.Post("", sessionHandler.CreateSession)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Post("/:id/start", sessionHandler.StartSession)
	sessions.Post("/:id/pause", sessionHandler.ToggleSession)
	sessions.Post("/:id/end", sessionHandler.EndSession)
	sessions.Post("/:id/review", reviewHandler.SubmitReview)

	payments := authProtected.Group("/payments")
	payments.Post("/checkout", paymentHandler.CreateCheckout)
	payments.Post("/connect", paymentHandler.ConnectLink)
	payments.Post("/portal", paymentHandler.PortalLink)
	payments.Get("/balance", paymentHandler.Balance)
	payments.Get("/payouts", paymentHandler.Payouts)

	return nil
}
