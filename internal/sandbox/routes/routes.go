// Package routes wires the sandbox's middleware and endpoints onto a fiber app.
package routes

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/walletgate/internal/config"
	"github.com/congo-pay/walletgate/internal/metrics"
	"github.com/congo-pay/walletgate/internal/sandbox/auth"
	"github.com/congo-pay/walletgate/internal/sandbox/book"
	"github.com/congo-pay/walletgate/internal/sandbox/identity"
	"github.com/congo-pay/walletgate/internal/sandbox/middleware"
	"github.com/congo-pay/walletgate/internal/sandbox/respond"
)

// Deps aggregates the services and shared clients routes are wired to.
type Deps struct {
	Cfg      config.SandboxConfig
	Cache    *redis.Client
	Registry *prometheus.Registry
	Logger   *slog.Logger
	Users    *identity.Service
	Auth     *auth.Service
	Book     *book.Book
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Users == nil || d.Auth == nil || d.Book == nil {
		return fmt.Errorf("routes: users, auth and book services are required")
	}
	if d.Cache == nil && !d.Cfg.IsDev() {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	var httpMetrics *metrics.HTTP
	if d.Registry != nil {
		httpMetrics = metrics.NewHTTP(d.Registry)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Metrics(httpMetrics))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return respond.OK(c, fiber.Map{"status": "ok", "requestId": reqID}, "")
	})

	authHandler := auth.NewHandler(d.Users, d.Auth)
	RegisterAuthRoutes(api, authHandler, middleware.LoginRateLimit(d.Cache, d.Cfg.LoginPerMinute, d.Logger))

	protected := api.Group("", middleware.Bearer(d.Auth))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	protected.Get("/users/me", func(c *fiber.Ctx) error {
		uid, ok := middleware.UserID(c)
		if !ok {
			return c.SendStatus(http.StatusUnauthorized)
		}
		user, err := d.Users.Get(c.UserContext(), uid)
		if err != nil {
			return &respond.Fault{Status: http.StatusNotFound, Code: "USER_NOT_FOUND", Message: fmt.Sprintf("User not found with id: %d", uid)}
		}
		return respond.OK(c, user.View(), "")
	})

	RegisterLedgerRoutes(protected, book.NewHandler(d.Book))

	return nil
}
