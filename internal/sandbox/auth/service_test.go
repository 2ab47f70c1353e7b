package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/walletgate/internal/sandbox/identity"
)

func setup(t *testing.T) (*Service, identity.User) {
	t.Helper()
	ids := identity.NewService(identity.NewMemoryRepository(), bcrypt.MinCost)
	user, err := ids.Register(context.Background(), identity.Registration{Email: "ada@example.com", Password: "password1", FirstName: "Ada", LastName: "Lovelace"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	svc := NewService(Config{Secret: []byte("test-secret"), AccessTTL: time.Minute, RefreshTTL: time.Hour}, ids)
	return svc, user
}

func TestLoginIssuesVerifiablePair(t *testing.T) {
	svc, user := setup(t)

	tokens, got, err := svc.Login(context.Background(), "ada@example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != user.ID || tokens.RefreshToken == "" || tokens.ExpiresIn != time.Minute.Milliseconds() {
		t.Fatalf("unexpected login result %+v %+v", tokens, got)
	}

	userID, err := svc.Verify(tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != user.ID {
		t.Fatalf("expected subject %d, got %d", user.ID, userID)
	}
}

func TestRefreshTokensAreSingleUse(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	first, _, err := svc.Login(ctx, "ada@example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, _, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.AccessToken == first.AccessToken || second.RefreshToken == first.RefreshToken {
		t.Fatalf("expected a brand new pair")
	}
	if _, _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected reused refresh token to fail, got %v", err)
	}
}

func TestExpiredRefreshToken(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	tokens, _, err := svc.Login(ctx, "ada@example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, _, err := svc.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("expected expired refresh token, got %v", err)
	}
}

func TestRevokeAccessTokensKeepsRefreshWorking(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	tokens, _, err := svc.Login(ctx, "ada@example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	svc.RevokeAccessTokens()
	if _, err := svc.Verify(tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected revoked access token, got %v", err)
	}

	renewed, _, err := svc.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh after revoke: %v", err)
	}
	if _, err := svc.Verify(renewed.AccessToken); err != nil {
		t.Fatalf("renewed token should verify: %v", err)
	}
}

func TestLogoutDropsRefreshTokens(t *testing.T) {
	svc, user := setup(t)
	ctx := context.Background()
	tokens, _, err := svc.Login(ctx, "ada@example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	svc.Logout(user.ID)
	if _, _, err := svc.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected refresh to fail after logout, got %v", err)
	}
}

func TestVerifyRejectsForeignAndExpiredTokens(t *testing.T) {
	svc, _ := setup(t)
	other, _ := setup(t)
	other.cfg.Secret = []byte("another-secret")

	tokens, _, err := other.Login(context.Background(), "ada@example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Verify(tokens.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to fail")
	}

	own, _, err := svc.Login(context.Background(), "ada@example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, err := svc.Verify(own.AccessToken); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}
