// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	issued   *prometheus.CounterVec
	revoked  prometheus.Counter
	users    prometheus.GaugeFunc
}

func newMetrics(users func() float64) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ifscenter",
			Subsystem: "devserver",
			Name:      "requests_total",
			Help:      "Requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ifscenter",
			Subsystem: "devserver",
			Name:      "request_duration_seconds",
			Help:      "Request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ifscenter",
			Subsystem: "devserver",
			Name:      "tokens_issued_total",
			Help:      "Access tokens issued by grant.",
		}, []string{"grant"}),
		revoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ifscenter",
			Subsystem: "devserver",
			Name:      "tokens_revoked_total",
			Help:      "Access tokens revoked by logout.",
		}),
		users: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "ifscenter",
			Subsystem: "devserver",
			Name:      "users",
			Help:      "Registered users.",
		}, users),
	}
	m.registry.MustRegister(m.requests, m.duration, m.issued, m.revoked, m.users)
	return m
}

func (m *metrics) observe(route, method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
