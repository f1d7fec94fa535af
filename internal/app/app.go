// Package app assembles the service graph shared by the HTTP server and the
// admin CLI.
package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mattfreire/mentors/internal/config"
	"github.com/mattfreire/mentors/internal/database"
	"github.com/mattfreire/mentors/internal/handlers"
	"github.com/mattfreire/mentors/internal/services"
	livews "github.com/mattfreire/mentors/internal/websocket"
	"github.com/samber/do/v2"
)

// New registers every provider. Nothing is constructed until first invoked,
// so commands that never touch the database never open a pool.
func New(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	registerInfrastructure(injector)
	registerServices(injector)
	registerHandlers(injector)

	return injector
}

func registerInfrastructure(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*pgxpool.Pool, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return database.Connect(context.Background(), cfg.DBUrl)
	})
	do.Provide(injector, func(i do.Injector) (*services.Store, error) {
		return services.NewStore(do.MustInvoke[*pgxpool.Pool](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*livews.Hub, error) {
		return livews.NewHub(), nil
	})
	do.Provide(injector, func(i do.Injector) (services.Notifier, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return services.NewHTTPNotifier(cfg.NotifyWebhookURL, cfg.NotifyFrom), nil
	})
}

func registerServices(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*services.SessionService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return services.NewSessionService(
			do.MustInvoke[*services.Store](i),
			do.MustInvoke[*livews.Hub](i),
			cfg.SessionURL,
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*services.ReviewService, error) {
		return services.NewReviewService(
			do.MustInvoke[*services.Store](i),
			do.MustInvoke[services.Notifier](i),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*services.PaymentService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return services.NewPaymentService(
			do.MustInvoke[*services.Store](i),
			PaymentProcessor(cfg),
			do.MustInvoke[services.Notifier](i),
			services.PaymentConfig{
				Currency:    cfg.Currency,
				FrontendURL: cfg.FrontendURL,
				Timeout:     cfg.PaymentTimeout,
				SessionURL:  cfg.SessionURL,
			},
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*services.AccountService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return services.NewAccountService(
			do.MustInvoke[*services.Store](i),
			PaymentProcessor(cfg),
			cfg.PaymentTimeout,
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*services.MentorService, error) {
		return services.NewMentorService(do.MustInvoke[*services.Store](i)), nil
	})
}

func registerHandlers(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*handlers.SessionHandler, error) {
		return handlers.NewSessionHandler(do.MustInvoke[*services.SessionService](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*handlers.ReviewHandler, error) {
		return handlers.NewReviewHandler(do.MustInvoke[*services.ReviewService](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*handlers.PaymentHandler, error) {
		return handlers.NewPaymentHandler(do.MustInvoke[*services.PaymentService](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*handlers.AccountHandler, error) {
		return handlers.NewAccountHandler(do.MustInvoke[*services.AccountService](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*handlers.MentorHandler, error) {
		return handlers.NewMentorHandler(do.MustInvoke[*services.MentorService](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*handlers.LiveHandler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return handlers.NewLiveHandler(
			do.MustInvoke[*services.SessionService](i),
			do.MustInvoke[*livews.Hub](i),
			cfg.JWTSecret,
		), nil
	})
}

// PaymentProcessor returns the Stripe client, or a nil interface when no
// secret key is configured so the services report payments as disabled.
func PaymentProcessor(cfg *config.Config) services.PaymentProcessor {
	if !cfg.PaymentsEnabled() {
		return nil
	}
	return services.NewStripeProcessor(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
}
