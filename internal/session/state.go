// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"time"

	"github.com/jeranaias/ifscenter-tui/internal/api"
)

// State is the session lifecycle state.
type State int

const (
	// Anonymous means no token is held.
	Anonymous State = iota
	// Validating means a persisted token was found and is being checked.
	Validating
	// Authenticated means a token is held and the warning window has not
	// been reached.
	Authenticated
	// WarningShown means the token expires within the warning window.
	WarningShown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Anonymous:
		return "ANONYMOUS"
	case Validating:
		return "VALIDATING"
	case Authenticated:
		return "AUTHENTICATED"
	case WarningShown:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

// LogoutReason records why a session ended.
type LogoutReason string

const (
	ReasonNone         LogoutReason = ""
	ReasonExplicit     LogoutReason = "explicit"
	ReasonIdle         LogoutReason = "idle"
	ReasonExpired      LogoutReason = "expired"
	ReasonUnauthorized LogoutReason = "unauthorized"
	ReasonValidation   LogoutReason = "validation"
	ReasonExternal     LogoutReason = "external"
)

var (
	// ErrNotAuthenticated is returned by operations that need a token.
	ErrNotAuthenticated = errors.New("session: not authenticated")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session: manager closed")

	// ErrSessionChanged means the token changed while an operation was in
	// flight; its result was discarded.
	ErrSessionChanged = errors.New("session: token changed during operation")

	// ErrNoRefreshToken is returned by the refresh extender when the
	// backend never issued a refresh token.
	ErrNoRefreshToken = errors.New("session: no refresh token")
)

// Snapshot is a consistent copy of the session for display.
type Snapshot struct {
	State          State
	Token          string
	Generation     uint64
	ExpiryAt       time.Time
	LastActivityAt time.Time
	WarningActive  bool
	Remaining      time.Duration
	User           *api.User
	AuthError      string
	Diagnostics    *api.Diagnostics
	LastLogout     LogoutReason

	// Version increases with every state change. Display ticks publish
	// with the same version and a smaller Remaining.
	Version uint64
}

// IsAuthenticated reports whether a token is held.
func (s Snapshot) IsAuthenticated() bool {
	return s.Token != ""
}
