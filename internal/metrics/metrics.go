// Package metrics holds the Prometheus collectors of the gateway client and
// the sandbox server. Collectors register on a caller-supplied registry so
// tests can inspect a fresh one.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "walletgate"

// Renewal outcomes.
const (
	RenewalSuccess = "success"
	RenewalReused  = "reused"
	RenewalFailed  = "failed"
)

// Gateway counts traffic through the session-renewing client. A nil *Gateway
// is valid and records nothing.
type Gateway struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	renewals      *prometheus.CounterVec
	replays       prometheus.Counter
	forcedLogouts prometheus.Counter
}

// NewGateway builds and registers the gateway collectors.
func NewGateway(reg prometheus.Registerer) *Gateway {
	g := &Gateway{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Requests sent to the ledger service, by method and response status.",
			},
			[]string{"method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Round trip time of a single attempt.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"method"},
		),
		renewals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "renewals_total",
				Help:      "Credential renewals triggered by 401 responses, by outcome.",
			},
			[]string{"outcome"},
		),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "replays_total",
			Help:      "Requests replayed after a successful renewal.",
		}),
		forcedLogouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "forced_logouts_total",
			Help:      "Sessions terminated because renewal failed.",
		}),
	}
	reg.MustRegister(g.requests, g.duration, g.renewals, g.replays, g.forcedLogouts)
	return g
}

// ObserveRequest records one attempt. status is 0 when no response arrived.
func (g *Gateway) ObserveRequest(method string, status int, elapsed time.Duration) {
	if g == nil {
		return
	}
	label := "network_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	g.requests.WithLabelValues(method, label).Inc()
	g.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Renewal records the outcome of one 401 recovery attempt.
func (g *Gateway) Renewal(outcome string) {
	if g == nil {
		return
	}
	g.renewals.WithLabelValues(outcome).Inc()
}

// Replay records a replayed request.
func (g *Gateway) Replay() {
	if g == nil {
		return
	}
	g.replays.Inc()
}

// ForcedLogout records a session terminated by failed renewal.
func (g *Gateway) ForcedLogout() {
	if g == nil {
		return
	}
	g.forcedLogouts.Inc()
}

// HTTP counts requests handled by the sandbox server.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTP builds and registers the server collectors.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	h := &HTTP{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sandbox",
				Name:      "requests_total",
				Help:      "Requests handled by the sandbox ledger service.",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "sandbox",
				Name:      "request_duration_seconds",
				Help:      "Duration of sandbox requests.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method", "route"},
		),
	}
	reg.MustRegister(h.requests, h.duration)
	return h
}

// Observe records one handled request. route is the matched route pattern,
// not the raw path, to keep label cardinality bounded.
func (h *HTTP) Observe(method, route string, status int, elapsed time.Duration) {
	if h == nil {
		return
	}
	h.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler exposes the collectors of reg.
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
