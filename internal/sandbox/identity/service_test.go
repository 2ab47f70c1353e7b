package identity

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/walletgate/internal/apierror"
	"github.com/congo-pay/walletgate/internal/model"
)

func newService() *Service {
	return NewService(NewMemoryRepository(), bcrypt.MinCost)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	user, err := svc.Register(ctx, Registration{Email: " Ada@Example.com ", Password: "password1", FirstName: "Ada", LastName: "Lovelace"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID != 1 || user.Email != "ada@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.Status != model.UserActive || len(user.Roles) != 1 || user.Roles[0] != RoleUser {
		t.Fatalf("expected active ROLE_USER account, got %s %v", user.Status, user.Roles)
	}

	authed, err := svc.Authenticate(ctx, "ADA@example.com", "password1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, authed.ID)
	}
	if view := authed.View(); view.Email != "ada@example.com" || view.CreatedAt.IsZero() {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestAuthenticateRejectsWrongPasswordAndUnknownEmail(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, Registration{Email: "a@b.io", Password: "password1", FirstName: "A", LastName: "B"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "a@b.io", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@b.io", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	reg := Registration{Email: "a@b.io", Password: "password1", FirstName: "A", LastName: "B"}
	if _, err := svc.Register(ctx, reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, reg); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newService()

	_, err := svc.Register(context.Background(), Registration{Email: "not-an-email", Password: "short"})
	var vErr *apierror.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"email", "password", "firstName", "lastName"} {
		if vErr.Fields[field] == "" {
			t.Fatalf("expected message for %s, got %v", field, vErr.Fields)
		}
	}
}
