package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mattfreire/mentors/internal/app"
	"github.com/mattfreire/mentors/internal/config"
	"github.com/mattfreire/mentors/internal/routes"
	"github.com/mattfreire/mentors/internal/telemetry"
	livews "github.com/mattfreire/mentors/internal/websocket"
	"github.com/samber/do/v2"
)

const (
	serviceName     = "mentors"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	initLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	injector := app.New(cfg)

	pool, err := do.Invoke[*pgxpool.Pool](injector)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	hub := do.MustInvoke[*livews.Hub](injector)
	go hub.Run(ctx)

	server := fiber.New()
	server.Use(cors.New())
	server.Use(logger.New())
	server.Use(recover.New())

	server.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	if err := routes.RegisterRoutes(server, injector); err != nil {
		slog.Error("failed to register routes", "error", err)
		os.Exit(1)
	}
	if !cfg.PaymentsEnabled() {
		slog.Warn("STRIPE_SECRET_KEY not set, payment endpoints are disabled")
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := server.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	pool.Close()

	tracingCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownTracing(tracingCtx); err != nil {
		slog.Error("tracing shutdown failed", "error", err)
	}
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}
