// Package session orchestrates authentication: it calls the ledger service,
// persists the credential pair and drives the session slice of the store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/congo-pay/walletgate/internal/apierror"
	"github.com/congo-pay/walletgate/internal/credstore"
	"github.com/congo-pay/walletgate/internal/logging"
	"github.com/congo-pay/walletgate/internal/model"
	"github.com/congo-pay/walletgate/internal/state"
)

// Fallback messages used when the server provides none.
const (
	msgLoginFailed    = "Login failed"
	msgRegisterFailed = "Registration failed"
	msgFetchUser      = "Failed to fetch user"
)

// API is the subset of the ledger service the orchestrator calls.
type API interface {
	Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error)
	Register(ctx context.Context, req model.RegisterRequest) (model.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (model.User, error)
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	api    API
	creds  credstore.Store
	store  *state.Store
	logger *slog.Logger
}

// New builds a session orchestrator.
func New(api API, creds credstore.Store, store *state.Store, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		api:    api,
		creds:  creds,
		store:  store,
		logger: logging.Component(logger, "session"),
	}
}

// Login authenticates and persists the issued credential pair.
func (o *Orchestrator) Login(ctx context.Context, email, password string) (model.User, error) {
	o.store.SessionPending()

	resp, err := o.api.Login(ctx, model.LoginRequest{Email: email, Password: password})
	if err != nil {
		o.store.LoginRejected(apierror.Message(err, msgLoginFailed))
		return model.User{}, err
	}

	pair := credstore.Pair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if err := o.creds.Set(ctx, pair); err != nil {
		o.store.LoginRejected(msgLoginFailed)
		return model.User{}, fmt.Errorf("store credentials: %w", err)
	}

	o.store.LoginFulfilled(resp.User)
	o.logger.Info("logged in", slog.Int64("user_id", resp.User.ID))
	return resp.User, nil
}

// Register creates an account. The session stays unauthenticated.
func (o *Orchestrator) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	o.store.SessionPending()

	user, err := o.api.Register(ctx, req)
	if err != nil {
		o.store.SessionRejected(apierror.Message(err, msgRegisterFailed))
		return model.User{}, err
	}

	o.store.RegisterFulfilled()
	o.logger.Info("registered", slog.Int64("user_id", user.ID))
	return user, nil
}

// Logout revokes the session on the server on a best-effort basis, then
// always clears local credentials and cached data. The server outcome is
// logged, never returned.
func (o *Orchestrator) Logout(ctx context.Context) error {
	o.store.SessionPending()

	if err := o.api.Logout(ctx); err != nil && !errors.Is(err, apierror.ErrNotAuthenticated) {
		o.logger.Warn("server logout failed", "error", err)
	}

	// The caller may have given up; local cleanup still has to happen.
	clearErr := o.creds.Clear(context.WithoutCancel(ctx))
	if clearErr != nil {
		o.logger.Error("clear credentials", "error", clearErr)
	}

	o.store.LogoutFulfilled()
	o.store.ResetLedger()
	o.logger.Info("logged out")

	if clearErr != nil {
		return fmt.Errorf("clear credentials: %w", clearErr)
	}
	return nil
}

// FetchCurrentIdentity replaces the cached identity with the server's.
func (o *Orchestrator) FetchCurrentIdentity(ctx context.Context) (model.User, error) {
	o.store.SessionPending()

	user, err := o.api.CurrentUser(ctx)
	if err != nil {
		o.store.SessionRejected(apierror.Message(err, msgFetchUser))
		return model.User{}, err
	}

	o.store.IdentityFulfilled(user)
	return user, nil
}

// Restore resumes a session from stored credentials, as after a process
// restart. It reports whether a session was found. A failed identity fetch
// leaves the session authenticated unless the credentials turned out to be
// expired.
func (o *Orchestrator) Restore(ctx context.Context) (bool, error) {
	if _, err := o.creds.Get(ctx); err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read credentials: %w", err)
	}

	o.store.MarkAuthenticated()
	if _, err := o.FetchCurrentIdentity(ctx); err != nil {
		var expired *apierror.SessionExpiredError
		if errors.As(err, &expired) {
			return false, err
		}
		return true, err
	}
	return true, nil
}

// HandleSessionExpired is registered as the gateway's forced-logout hook. By
// the time it runs the credential store is already empty.
func (o *Orchestrator) HandleSessionExpired() {
	o.store.SessionExpired()
	o.store.ResetLedger()
	o.logger.Warn("session expired, login required")
}

// ClearError empties the session error.
func (o *Orchestrator) ClearError() {
	o.store.ClearSessionError()
}
