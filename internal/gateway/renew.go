package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/congo-pay/walletgate/internal/apierror"
	"github.com/congo-pay/walletgate/internal/credstore"
	"github.com/congo-pay/walletgate/internal/metrics"
	"github.com/congo-pay/walletgate/internal/model"
)

const renewalKey = "renew"

// renew returns a usable credential pair after stale was rejected with 401.
// Concurrent callers share one flight; the flight runs detached from any
// single caller's context so an abandoned caller cannot fail the others.
func (c *Client) renew(ctx context.Context, stale string) (credstore.Pair, error) {
	ch := c.renewals.DoChan(renewalKey, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.renewalTimeout)
		defer cancel()
		return c.refresh(flightCtx, stale)
	})

	select {
	case <-ctx.Done():
		return credstore.Pair{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return credstore.Pair{}, res.Err
		}
		return res.Val.(credstore.Pair), nil
	}
}

func (c *Client) refresh(ctx context.Context, stale string) (credstore.Pair, error) {
	current, err := c.store.Get(ctx)
	if errors.Is(err, credstore.ErrNotFound) {
		// Cleared by logout or by an earlier failed renewal; the hook has
		// already run for that.
		return credstore.Pair{}, &apierror.SessionExpiredError{Err: apierror.ErrNotAuthenticated}
	}
	if err != nil {
		return credstore.Pair{}, fmt.Errorf("read credentials: %w", err)
	}

	if current.AccessToken != stale {
		c.metrics.Renewal(metrics.RenewalReused)
		c.logger.Debug("access token already renewed")
		return current, nil
	}
	if current.RefreshToken == "" {
		return credstore.Pair{}, c.expire(ctx, apierror.ErrNoRefreshToken)
	}

	body, err := encodeBody(model.RefreshRequest{RefreshToken: current.RefreshToken})
	if err != nil {
		return credstore.Pair{}, err
	}
	refreshReq := Request{Method: http.MethodPost, Path: "/auth/refresh", Public: true}
	status, payload, err := c.send(ctx, refreshReq, body, "", "")
	if err != nil {
		return credstore.Pair{}, c.expire(ctx, err)
	}

	var auth model.AuthResponse
	if err := decode(status, payload, &auth); err != nil {
		return credstore.Pair{}, c.expire(ctx, err)
	}
	if auth.AccessToken == "" {
		return credstore.Pair{}, c.expire(ctx, errors.New("refresh response carried no access token"))
	}

	renewed := credstore.Pair{AccessToken: auth.AccessToken, RefreshToken: auth.RefreshToken}
	if renewed.RefreshToken == "" {
		renewed.RefreshToken = current.RefreshToken
	}
	if err := c.store.Set(ctx, renewed); err != nil {
		return credstore.Pair{}, fmt.Errorf("store renewed credentials: %w", err)
	}

	c.metrics.Renewal(metrics.RenewalSuccess)
	c.logger.Info("access token renewed")
	return renewed, nil
}

// expire ends the session: credentials are cleared before the hook runs so
// the hook observes the logged-out store.
func (c *Client) expire(ctx context.Context, cause error) error {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("clear credentials after failed renewal", "error", err)
	}
	c.metrics.Renewal(metrics.RenewalFailed)
	c.metrics.ForcedLogout()
	c.logger.Warn("session expired", slog.String("reason", cause.Error()))

	if fn := c.onExpired.Load(); fn != nil {
		(*fn)()
	}
	return &apierror.SessionExpiredError{Err: cause}
}
