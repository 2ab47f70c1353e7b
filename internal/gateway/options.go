package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/congo-pay/walletgate/internal/metrics"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultRenewalTimeout = 10 * time.Second
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport. The client's own Timeout bounds each
// attempt; renewal and replay are separate attempts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records request, renewal and forced-logout counters.
func WithMetrics(m *metrics.Gateway) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRateLimit throttles outbound attempts to rps with the given burst. A
// non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRenewalTimeout bounds the shared refresh call.
func WithRenewalTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.renewalTimeout = d
		}
	}
}

// WithSessionExpiredHandler registers the callback fired once per failed
// renewal, after the credential store has been cleared.
func WithSessionExpiredHandler(fn func()) Option {
	return func(c *Client) {
		c.SetSessionExpiredHandler(fn)
	}
}
