// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketplace"

var (
	GatewayCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "calls_total",
		Help:      "Calls dispatched to upstream APIs, by API and upstream status class.",
	}, []string{"api_id", "method", "status_class"})

	GatewayRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "rejections_total",
		Help:      "Calls rejected before dispatch, by error code.",
	}, []string{"code"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "upstream_duration_seconds",
		Help:      "Time spent waiting on upstream APIs.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"api_id"})

	LedgerWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "ledger_write_failures_total",
		Help:      "Dispatched calls whose usage row could not be written.",
	})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "webhook_events_total",
		Help:      "Payment webhook deliveries, by event type and outcome.",
	}, []string{"type", "outcome"})

	CredentialBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "client_blocks_total",
		Help:      "Clients blocked after repeated credential failures, by scope.",
	}, []string{"scope"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, by route pattern, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// StatusClass buckets an HTTP status as "2xx", "4xx" and so on. Zero means
// no response was received.
func StatusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

func ObserveCall(apiID int64, method string, status int, elapsed time.Duration) {
	id := strconv.FormatInt(apiID, 10)
	GatewayCalls.WithLabelValues(id, method, StatusClass(status)).Inc()
	UpstreamLatency.WithLabelValues(id).Observe(elapsed.Seconds())
}
