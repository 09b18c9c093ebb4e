// Package metrics exposes the gateway's Prometheus instrumentation:
// request throughput and latency, auth gate decisions, upstream proxy
// latency, throttle hits and audit trail activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llmgate_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llmgate_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	authDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llmgate_auth_decisions_total",
		Help: "Token validation outcomes at the auth gate",
	}, []string{"outcome", "reason"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llmgate_upstream_request_duration_seconds",
		Help:    "Duration of proxied inference service calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "result"})

	rateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llmgate_rate_limited_total",
		Help: "Requests rejected by the login/register throttle",
	}, []string{"scope"})

	auditEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llmgate_audit_events_total",
		Help: "Audit trail events by action and outcome",
	}, []string{"action", "result"})

	auditQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "llmgate_audit_queue_depth",
		Help: "Events waiting in the audit trail buffer",
	})
)

// ObserveHTTPRequest records one handled HTTP request.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAuthDecision records an admit or reject at the auth gate.
func ObserveAuthDecision(outcome, reason string) {
	authDecisions.WithLabelValues(outcome, reason).Inc()
}

// ObserveUpstream records the duration of one inference service call.
func ObserveUpstream(endpoint, result string, duration time.Duration) {
	upstreamRequestDuration.WithLabelValues(endpoint, result).Observe(duration.Seconds())
}

// ObserveRateLimited counts a throttled request for the given scope.
func ObserveRateLimited(scope string) {
	rateLimitedTotal.WithLabelValues(scope).Inc()
}

// ObserveAuditEvent counts an audit event as recorded or dropped.
func ObserveAuditEvent(action, result string) {
	auditEventsTotal.WithLabelValues(action, result).Inc()
}

// SetAuditQueueDepth reports the current audit buffer backlog.
func SetAuditQueueDepth(depth int) {
	auditQueueDepth.Set(float64(depth))
}
