// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the session counters. A nil *Metrics records nothing.
type Metrics struct {
	Logins        *prometheus.CounterVec
	Logouts       *prometheus.CounterVec
	Extensions    *prometheus.CounterVec
	Warnings      prometheus.Counter
	Authenticated prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ifscenter",
			Subsystem: "session",
			Name:      "logins_total",
			Help:      "Login and register attempts by operation and result.",
		}, []string{"op", "result"}),
		Logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ifscenter",
			Subsystem: "session",
			Name:      "logouts_total",
			Help:      "Transitions to anonymous by reason.",
		}, []string{"reason"}),
		Extensions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ifscenter",
			Subsystem: "session",
			Name:      "extensions_total",
			Help:      "Extend calls by result.",
		}, []string{"result"}),
		Warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ifscenter",
			Subsystem: "session",
			Name:      "warnings_total",
			Help:      "Sessions that entered the expiry warning window.",
		}),
		Authenticated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ifscenter",
			Subsystem: "session",
			Name:      "authenticated",
			Help:      "1 while a token is held.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Logins, m.Logouts, m.Extensions, m.Warnings, m.Authenticated)
	}
	return m
}

func (m *Metrics) login(op string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.Logins.WithLabelValues(op, result).Inc()
}

func (m *Metrics) logout(reason LogoutReason) {
	if m == nil {
		return
	}
	m.Logouts.WithLabelValues(string(reason)).Inc()
	m.Authenticated.Set(0)
}

func (m *Metrics) extended(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.Extensions.WithLabelValues("ok").Inc()
	} else {
		m.Extensions.WithLabelValues("error").Inc()
	}
}

func (m *Metrics) warned() {
	if m == nil {
		return
	}
	m.Warnings.Inc()
}

func (m *Metrics) authenticated() {
	if m == nil {
		return
	}
	m.Authenticated.Set(1)
}
