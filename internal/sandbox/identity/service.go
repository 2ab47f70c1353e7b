// Package identity manages sandbox user accounts.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/walletgate/internal/model"
	"github.com/congo-pay/walletgate/internal/sandbox/respond"
)

const minPasswordLength = 8

// ErrInvalidCredentials is returned by Authenticate for an unknown email or a
// wrong password alike.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Service manages the account lifecycle.
type Service struct {
	repo Repository
	cost int
}

// NewService creates an identity service hashing passwords with the given
// bcrypt cost. A cost outside bcrypt's range falls back to the default.
func NewService(repo Repository, cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, cost: cost}
}

// Register creates an active account. It does not log the user in.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	reg.Email = normalizeEmail(reg.Email)
	if err := validateRegistration(reg); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return User{}, err
	}

	user, err := s.repo.Create(ctx, User{
		Email:        reg.Email,
		FirstName:    strings.TrimSpace(reg.FirstName),
		LastName:     strings.TrimSpace(reg.LastName),
		PhoneNumber:  strings.TrimSpace(reg.PhoneNumber),
		PasswordHash: hash,
		Status:       model.UserActive,
		Roles:        []string{RoleUser},
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return User{}, fmt.Errorf("%w: %s", ErrEmailTaken, reg.Email)
		}
		return User{}, err
	}
	return user, nil
}

// Authenticate verifies an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if user.Status != model.UserActive {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Get returns the account with the given ID.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.FindByID(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(reg Registration) error {
	fields := map[string]string{}
	if reg.Email == "" {
		fields["email"] = "Email is required"
	} else if addr, err := mail.ParseAddress(reg.Email); err != nil || addr.Address != reg.Email {
		fields["email"] = "Email should be valid"
	}
	if len(reg.Password) < minPasswordLength {
		fields["password"] = fmt.Sprintf("Password must be at least %d characters", minPasswordLength)
	}
	if strings.TrimSpace(reg.FirstName) == "" {
		fields["firstName"] = "First name is required"
	}
	if strings.TrimSpace(reg.LastName) == "" {
		fields["lastName"] = "Last name is required"
	}
	return respond.Validation(fields)
}
