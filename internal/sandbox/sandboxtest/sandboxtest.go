// Package sandboxtest runs the sandbox ledger service on a loopback port for
// tests that exercise the client over real HTTP.
package sandboxtest

import (
	"context"
	"net"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/walletgate/internal/config"
	"github.com/congo-pay/walletgate/internal/logging"
	"github.com/congo-pay/walletgate/internal/sandbox/auth"
	"github.com/congo-pay/walletgate/internal/sandbox/book"
	"github.com/congo-pay/walletgate/internal/sandbox/identity"
	"github.com/congo-pay/walletgate/internal/sandbox/server"
)

// DefaultPassword is the password of accounts created by Register.
const DefaultPassword = "password123"

// Sandbox is a running sandbox instance.
type Sandbox struct {
	// URL is the API base, e.g. http://127.0.0.1:54321/api/v1.
	URL    string
	Server *server.Server
	Redis  *miniredis.Miniredis
}

// Start launches a sandbox backed by an in-process Redis and stops it when
// the test ends.
func Start(t testing.TB) *Sandbox {
	t.Helper()

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := config.SandboxDefaults()
	cfg.AppEnv = "test"
	cfg.PasswordCost = bcrypt.MinCost
	cfg.LoginPerMinute = 1000

	srv, err := server.New(cfg, cache, prometheus.NewRegistry(), logging.Discard())
	if err != nil {
		t.Fatalf("build sandbox: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		_ = srv.Serve(ln)
	}()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Logf("sandbox shutdown: %v", err)
		}
		cache.Close()
	})

	return &Sandbox{
		URL:    "http://" + ln.Addr().String() + "/api/v1",
		Server: srv,
		Redis:  mr,
	}
}

// Auth returns the sandbox credential service.
func (s *Sandbox) Auth() *auth.Service { return s.Server.Auth() }

// Book returns the sandbox wallet ledger.
func (s *Sandbox) Book() *book.Book { return s.Server.Book() }

// Register creates an account with DefaultPassword.
func (s *Sandbox) Register(t testing.TB, email string) identity.User {
	t.Helper()
	user, err := s.Server.Users().Register(context.Background(), identity.Registration{
		Email:     email,
		Password:  DefaultPassword,
		FirstName: "Test",
		LastName:  "User",
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user
}
