// Package gateway is the HTTP client every ledger-service call goes through.
// It attaches the bearer credential, recovers from an expired access token by
// renewing it once, and replays the failed request exactly once.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/congo-pay/walletgate/internal/apierror"
	"github.com/congo-pay/walletgate/internal/credstore"
	"github.com/congo-pay/walletgate/internal/logging"
	"github.com/congo-pay/walletgate/internal/metrics"
	"github.com/congo-pay/walletgate/internal/model"
)

const (
	requestIDHeader      = "X-Request-ID"
	idempotencyKeyHeader = "Idempotency-Key"
	maxResponseBytes     = 4 << 20
)

// Request describes one logical call. It is a value: the client never mutates
// it and the replay after renewal is built from the same value.
type Request struct {
	Method string
	// Path is relative to the base URL, e.g. "/wallets".
	Path  string
	Query url.Values
	Body  any
	// Public requests (login, register, refresh) carry no credential
	// requirement and a 401 on them is returned as is.
	Public bool
}

// Client is safe for concurrent use.
type Client struct {
	baseURL        string
	http           *http.Client
	store          credstore.Store
	logger         *slog.Logger
	metrics        *metrics.Gateway
	limiter        *rate.Limiter
	renewalTimeout time.Duration
	renewals       singleflight.Group
	onExpired      atomic.Pointer[func()]
}

// New builds a client rooted at baseURL (e.g. http://host/api/v1).
func New(baseURL string, store credstore.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &http.Client{Timeout: defaultRequestTimeout},
		store:          store,
		logger:         logging.Discard(),
		renewalTimeout: defaultRenewalTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.Component(c.logger, "gateway")
	return c
}

// SetSessionExpiredHandler replaces the forced-logout callback. It exists so
// the session orchestrator, which needs the client, can register itself after
// construction.
func (c *Client) SetSessionExpiredHandler(fn func()) {
	if fn == nil {
		c.onExpired.Store(nil)
		return
	}
	c.onExpired.Store(&fn)
}

// Store returns the credential store the client reads from.
func (c *Client) Store() credstore.Store {
	return c.store
}

// Do executes req and decodes the envelope's data into out (which may be nil).
//
// A non-public request without stored credentials fails with
// apierror.ErrNotAuthenticated before any I/O. A 401 on a non-public request
// triggers one renewal shared with every concurrent caller, then exactly one
// replay; a failed renewal yields *apierror.SessionExpiredError.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	body, err := encodeBody(req.Body)
	if err != nil {
		return err
	}

	var idempotencyKey string
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		idempotencyKey = uuid.NewString()
	}

	pair, err := c.store.Get(ctx)
	switch {
	case err == nil:
	case errors.Is(err, credstore.ErrNotFound):
		if !req.Public {
			return apierror.ErrNotAuthenticated
		}
	case req.Public:
		// Login and register do not need the stored pair.
		c.logger.Warn("credential store unavailable, sending without bearer",
			slog.String("path", req.Path), "error", err)
		pair = credstore.Pair{}
	default:
		return fmt.Errorf("read credentials: %w", err)
	}

	status, payload, err := c.send(ctx, req, body, pair.AccessToken, idempotencyKey)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && !req.Public {
		renewed, err := c.renew(ctx, pair.AccessToken)
		if err != nil {
			return err
		}
		c.metrics.Replay()
		c.logger.Debug("replaying request", slog.String("method", req.Method), slog.String("path", req.Path))

		status, payload, err = c.send(ctx, req, body, renewed.AccessToken, idempotencyKey)
		if err != nil {
			return err
		}
	}

	return decode(status, payload, out)
}

func (c *Client) send(ctx context.Context, req Request, body []byte, accessToken, idempotencyKey string) (int, []byte, error) {
	op := req.Method + " " + req.Path

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, &apierror.NetworkError{Op: op, Err: err}
		}
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request %s: %w", op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idempotencyKey != "" {
		httpReq.Header.Set(idempotencyKeyHeader, idempotencyKey)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(requestIDHeader, requestID)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(req.Method, 0, time.Since(start))
		c.logger.Debug("request failed",
			slog.String("method", req.Method),
			slog.String("path", req.Path),
			slog.String("request_id", requestID),
			"error", err,
		)
		return 0, nil, &apierror.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	elapsed := time.Since(start)
	c.metrics.ObserveRequest(req.Method, resp.StatusCode, elapsed)
	if err != nil {
		return 0, nil, &apierror.NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("request completed",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", elapsed),
		slog.String("request_id", requestID),
	)
	return resp.StatusCode, payload, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return data, nil
}

func decode(status int, payload []byte, out any) error {
	if status < 200 || status >= 300 {
		return apierror.FromResponse(status, payload)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	var env model.Envelope[json.RawMessage]
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decode response envelope: %w", err)
	}
	if !env.Success {
		return apierror.FromResponse(status, payload)
	}
	if out == nil || len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
