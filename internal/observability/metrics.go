// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Auth flow outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the application counters. A nil *Metrics records nothing.
type Metrics struct {
	AuthFlowsTotal      *prometheus.CounterVec
	NotificationsTotal  *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the application metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthFlowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bienesraices_auth_flow_total",
				Help: "Auth flow completions by flow and outcome",
			},
			[]string{"flow", "outcome"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bienesraices_notifications_total",
				Help: "Account notifications by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bienesraices_http_requests_total",
				Help: "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bienesraices_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(m.AuthFlowsTotal, m.NotificationsTotal, m.HTTPRequestsTotal, m.HTTPRequestDuration)
	return m
}

// RecordAuthFlow counts one completion of flow.
func (m *Metrics) RecordAuthFlow(flow, outcome string) {
	if m == nil {
		return
	}
	m.AuthFlowsTotal.WithLabelValues(flow, outcome).Inc()
}

// RecordNotification counts one notification attempt.
func (m *Metrics) RecordNotification(kind string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.NotificationsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordHTTPRequest counts a served request and observes its latency.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
