// Package auth issues and verifies sandbox credentials: HS256 access tokens
// and opaque single-use refresh tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/congo-pay/walletgate/internal/sandbox/identity"
)

// TokenType is reported in every token response.
const TokenType = "Bearer"

var (
	// ErrInvalidToken is returned by Verify for any unusable access token.
	ErrInvalidToken = errors.New("invalid access token")
	// ErrInvalidRefreshToken is returned for unknown or already used refresh tokens.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrRefreshTokenExpired is returned for refresh tokens past their expiry.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// Config holds the signing parameters.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Tokens is an issued credential pair.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in milliseconds.
	ExpiresIn int64
}

type accessClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	// Epoch must match the service's current epoch for the token to verify.
	Epoch int64 `json:"ver"`
	jwt.RegisteredClaims
}

type refreshToken struct {
	userID  int64
	expires time.Time
}

// Service is safe for concurrent use.
type Service struct {
	cfg   Config
	users *identity.Service
	epoch atomic.Int64
	now   func() time.Time

	mu      sync.Mutex
	refresh map[string]refreshToken
}

// NewService builds an auth service over the given accounts.
func NewService(cfg Config, users *identity.Service) *Service {
	return &Service{
		cfg:     cfg,
		users:   users,
		now:     time.Now,
		refresh: make(map[string]refreshToken),
	}
}

// Login authenticates and issues a fresh pair.
func (s *Service) Login(ctx context.Context, email, password string) (Tokens, identity.User, error) {
	user, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return Tokens{}, identity.User{}, err
	}
	tokens, err := s.issue(user)
	if err != nil {
		return Tokens{}, identity.User{}, err
	}
	return tokens, user, nil
}

// Refresh trades a refresh token for a new pair. The presented token is
// consumed whether or not the exchange succeeds.
func (s *Service) Refresh(ctx context.Context, token string) (Tokens, identity.User, error) {
	s.mu.Lock()
	stored, ok := s.refresh[token]
	delete(s.refresh, token)
	s.mu.Unlock()

	if !ok {
		return Tokens{}, identity.User{}, ErrInvalidRefreshToken
	}
	if s.now().After(stored.expires) {
		return Tokens{}, identity.User{}, ErrRefreshTokenExpired
	}

	user, err := s.users.Get(ctx, stored.userID)
	if err != nil {
		return Tokens{}, identity.User{}, ErrInvalidRefreshToken
	}
	tokens, err := s.issue(user)
	if err != nil {
		return Tokens{}, identity.User{}, err
	}
	return tokens, user, nil
}

// Logout drops every refresh token of the user. Access tokens stay valid
// until they expire.
func (s *Service) Logout(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, stored := range s.refresh {
		if stored.userID == userID {
			delete(s.refresh, token)
		}
	}
}

// RevokeAccessTokens invalidates every access token issued so far. Refresh
// tokens are unaffected, so clients recover by renewing.
func (s *Service) RevokeAccessTokens() {
	s.epoch.Add(1)
}

// RevokeRefreshTokens drops every outstanding refresh token.
func (s *Service) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refresh)
}

// Verify returns the user ID an access token was issued to.
func (s *Service) Verify(token string) (int64, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Epoch != s.epoch.Load() {
		return 0, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	if _, err := s.users.Get(context.Background(), userID); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return userID, nil
}

func (s *Service) issue(user identity.User) (Tokens, error) {
	now := s.now()
	claims := accessClaims{
		Email: user.Email,
		Roles: user.Roles,
		Epoch: s.epoch.Load(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return Tokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh := uuid.NewString()
	s.mu.Lock()
	s.refresh[refresh] = refreshToken{userID: user.ID, expires: now.Add(s.cfg.RefreshTTL)}
	s.mu.Unlock()

	return Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.cfg.AccessTTL.Milliseconds(),
	}, nil
}
