// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	"github.com/jeranaias/ifscenter-tui/internal/config"
)

// Extension policies.
const (
	PolicySimulated = config.ExtendSimulated
	PolicyRefresh   = config.ExtendRefresh
)

// Config holds the manager's timings and policies.
type Config struct {
	IdleTimeout    time.Duration
	WarningWindow  time.Duration
	ExtendBy       time.Duration
	FallbackExpiry time.Duration
	TickInterval   time.Duration

	// ExtendPolicy selects the Extender: PolicySimulated or PolicyRefresh.
	ExtendPolicy string

	// NotifyServerOnLogout makes SignOut call POST /logout first.
	NotifyServerOnLogout bool

	// WatchExternal adopts token changes made by other processes when the
	// storage backend supports watching.
	WatchExternal bool
}

// DefaultConfig returns the standard timings: 30 minute idle limit, 60
// second warning window, 30 minute extension, 24 hour fallback expiry.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:          DefaultIdleTimeout,
		WarningWindow:        DefaultWarningWindow,
		ExtendBy:             DefaultExtendBy,
		FallbackExpiry:       DefaultFallbackExpiry,
		TickInterval:         DefaultTickInterval,
		ExtendPolicy:         PolicySimulated,
		NotifyServerOnLogout: true,
		WatchExternal:        true,
	}
}

// withDefaults fills every non-positive duration from DefaultConfig, so a
// zero Config behaves like DefaultConfig apart from its policy flags.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.WarningWindow <= 0 {
		c.WarningWindow = def.WarningWindow
	}
	if c.ExtendBy <= 0 {
		c.ExtendBy = def.ExtendBy
	}
	if c.FallbackExpiry <= 0 {
		c.FallbackExpiry = def.FallbackExpiry
	}
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.ExtendPolicy == "" {
		c.ExtendPolicy = def.ExtendPolicy
	}
	return c
}

// ConfigFrom maps the application config onto a session Config.
func ConfigFrom(cfg *config.Config) Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}
	s := cfg.Session
	if d := s.IdleTimeout(); d > 0 {
		out.IdleTimeout = d
	}
	if s.WarningWindowSecs >= 0 {
		out.WarningWindow = s.WarningWindow()
	}
	if d := s.ExtendBy(); d > 0 {
		out.ExtendBy = d
	}
	if d := s.FallbackExpiry(); d > 0 {
		out.FallbackExpiry = d
	}
	if s.ExtendPolicy != "" {
		out.ExtendPolicy = s.ExtendPolicy
	}
	out.NotifyServerOnLogout = s.NotifyServerOnLogout
	out.WatchExternal = s.WatchExternal
	return out
}
