// Package server assembles the sandbox ledger service.
package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/walletgate/internal/config"
	"github.com/congo-pay/walletgate/internal/logging"
	"github.com/congo-pay/walletgate/internal/sandbox/auth"
	"github.com/congo-pay/walletgate/internal/sandbox/book"
	"github.com/congo-pay/walletgate/internal/sandbox/identity"
	"github.com/congo-pay/walletgate/internal/sandbox/notify"
	"github.com/congo-pay/walletgate/internal/sandbox/respond"
	"github.com/congo-pay/walletgate/internal/sandbox/routes"
)

// Server wraps the Fiber application and the services behind it.
type Server struct {
	app   *fiber.App
	cfg   config.SandboxConfig
	auth  *auth.Service
	book  *book.Book
	users *identity.Service
}

// New builds the sandbox. cache and reg may be nil in development; without a
// cache idempotency and login rate limiting are off.
func New(cfg config.SandboxConfig, cache *redis.Client, reg *prometheus.Registry, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          respond.ErrorHandler(logging.Component(logger, "sandbox")),
		DisableStartupMessage: true,
	})

	users := identity.NewService(identity.NewMemoryRepository(), cfg.PasswordCost)
	authSvc := auth.NewService(auth.Config{
		Secret:     []byte(cfg.JWTSecret),
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, users)
	ledger := book.New(notify.NewLoggerNotifier(logging.Component(logger, "notify")), logging.Component(logger, "book"))

	if err := routes.Setup(app, routes.Deps{
		Cfg:      cfg,
		Cache:    cache,
		Registry: reg,
		Logger:   logging.Component(logger, "http"),
		Users:    users,
		Auth:     authSvc,
		Book:     ledger,
	}); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, auth: authSvc, book: ledger, users: users}, nil
}

// App exposes the Fiber application, e.g. for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Auth returns the credential service.
func (s *Server) Auth() *auth.Service { return s.auth }

// Book returns the wallet ledger.
func (s *Server) Book() *book.Book { return s.book }

// Users returns the account service.
func (s *Server) Users() *identity.Service { return s.users }

// Listen starts the HTTP server on the configured port.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
