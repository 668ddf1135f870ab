// Package metrics holds the Prometheus collectors shared by the HTTP layer and the services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts handled requests by route template, method and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftadmin_http_requests_total",
			Help: "Handled HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	// HTTPDuration observes request latency by route template.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "giftadmin_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// AuditWriteFailures counts gift log entries that could not be stored.
	AuditWriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftadmin_audit_write_failures_total",
			Help: "Gift log entries dropped because the insert failed.",
		},
		[]string{"action"},
	)
	// LoginRejections counts refused logins by reason.
	LoginRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftadmin_login_rejections_total",
			Help: "Rejected login attempts.",
		},
		[]string{"reason"},
	)
	// EligibilityPruned counts eligibility rows removed by the retention cleaner.
	EligibilityPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "giftadmin_eligibility_pruned_total",
			Help: "Eligibility rows deleted by retention.",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, AuditWriteFailures, LoginRejections, EligibilityPruned)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
