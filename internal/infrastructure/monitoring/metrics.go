package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics of the guardrail service.
// All Record methods are nil-safe so components can run without metrics,
// e.g. in tests or one-shot CLI invocations.
type Metrics struct {
	RateLimitDecisions *prometheus.CounterVec
	RateLimitFailOpens *prometheus.CounterVec
	RateLimitLatency   *prometheus.HistogramVec
	ScriptReloads      prometheus.Counter
	Revocations        *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPLatency        *prometheus.HistogramVec
}

// NewMetrics creates and registers the service metrics on the default
// Prometheus registerer.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates the service metrics on a caller-provided registerer.
// Tests pass a fresh registry so repeated construction never collides.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RateLimitDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardrail_rate_limit_decisions_total",
				Help: "Rate limit decisions by strategy and outcome.",
			},
			[]string{"strategy", "outcome"},
		),
		RateLimitFailOpens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardrail_rate_limit_fail_opens_total",
				Help: "Requests admitted because the limit store failed, by failure class.",
			},
			[]string{"strategy", "reason"},
		),
		RateLimitLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "guardrail_rate_limit_check_seconds",
				Help:    "Latency of rate limit checks.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		ScriptReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "guardrail_script_reloads_total",
				Help: "Decision script reloads triggered by NOSCRIPT responses.",
			},
		),
		Revocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardrail_revocations_total",
				Help: "Revocation operations by kind and result.",
			},
			[]string{"kind", "result"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardrail_http_requests_total",
				Help: "HTTP requests by method, route and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "guardrail_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordRateLimitDecision records the outcome of one rate limit check.
func (m *Metrics) RecordRateLimitDecision(strategy string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.RateLimitDecisions.WithLabelValues(strategy, outcome).Inc()
}

// RecordRateLimitFailOpen records a request admitted on store failure.
func (m *Metrics) RecordRateLimitFailOpen(strategy, reason string) {
	if m == nil {
		return
	}
	m.RateLimitFailOpens.WithLabelValues(strategy, reason).Inc()
}

// ObserveRateLimitCheck records the latency of one rate limit check.
func (m *Metrics) ObserveRateLimitCheck(strategy string, seconds float64) {
	if m == nil {
		return
	}
	m.RateLimitLatency.WithLabelValues(strategy).Observe(seconds)
}

// RecordScriptReload records one NOSCRIPT-triggered script reload.
func (m *Metrics) RecordScriptReload() {
	if m == nil {
		return
	}
	m.ScriptReloads.Inc()
}

// RecordRevocation records a revocation operation.
func (m *Metrics) RecordRevocation(kind string, ok bool) {
	if m == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	m.Revocations.WithLabelValues(kind, result).Inc()
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPLatency.WithLabelValues(method, path).Observe(seconds)
}
