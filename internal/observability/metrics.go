// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application metrics. It satisfies auth.Recorder.
type Metrics struct {
	AuthOperations *prometheus.CounterVec
	TokenFailures  *prometheus.CounterVec
	DetectRequests *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

// NewMetrics creates the application metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudguard_auth_operations_total",
				Help: "Total number of auth operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		TokenFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudguard_auth_token_failures_total",
				Help: "Total number of rejected session tokens by reason",
			},
			[]string{"reason"},
		),
		DetectRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudguard_detect_requests_total",
				Help: "Total number of scoring requests by outcome",
			},
			[]string{"outcome"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudguard_http_requests_total",
				Help: "Total number of API requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fraudguard_http_request_duration_seconds",
				Help:    "API request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(m.AuthOperations, m.TokenFailures, m.DetectRequests, m.HTTPRequests, m.HTTPDuration)
	return m
}

// AuthOperation counts one Register, Login or VerifyToken outcome.
func (m *Metrics) AuthOperation(operation, result string) {
	m.AuthOperations.WithLabelValues(operation, result).Inc()
}

// TokenRejected counts a token that failed verification.
func (m *Metrics) TokenRejected(reason string) {
	m.TokenFailures.WithLabelValues(reason).Inc()
}

// DetectOutcome counts one scoring request.
func (m *Metrics) DetectOutcome(outcome string) {
	m.DetectRequests.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one served API request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
