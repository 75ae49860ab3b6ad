// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ifscenter-tui/internal/session"
	"github.com/jeranaias/ifscenter-tui/internal/ui/components"
	"github.com/jeranaias/ifscenter-tui/internal/ui/styles"
)

// =============================================================================
// SESSION INTERFACE
// =============================================================================

// Session is the part of *session.Manager the UI drives.
type Session interface {
	Login(ctx context.Context, identity, secret string) (session.Snapshot, error)
	Register(ctx context.Context, identity, email, secret string) (session.Snapshot, error)
	Extend(ctx context.Context) (session.Snapshot, error)
	SignOut(ctx context.Context)
	Snapshot() session.Snapshot
	ClearAuthError()
}

// =============================================================================
// SCREENS
// =============================================================================

// Screen is the top-level view being shown.
type Screen int

const (
	// ScreenStartup is shown while a saved token is validated.
	ScreenStartup Screen = iota
	// ScreenLogin shows the sign-in / register form.
	ScreenLogin
	// ScreenHome is the signed-in view.
	ScreenHome
)

func (s Screen) String() string {
	switch s {
	case ScreenStartup:
		return "startup"
	case ScreenLogin:
		return "login"
	case ScreenHome:
		return "home"
	default:
		return "unknown"
	}
}

// DefaultRequestTimeout bounds each request started from the UI.
const DefaultRequestTimeout = 15 * time.Second

// =============================================================================
// MODEL
// =============================================================================

// Model is the root Bubble Tea model.
type Model struct {
	session  Session
	activity Emitter
	theme    *styles.Theme

	screen  Screen
	form    *components.AuthForm
	overlay components.SessionTimeoutOverlay
	status  *components.StatusBar
	spinner components.Spinner

	// Last snapshot applied and whether one has been seen.
	snap session.Snapshot
	seen bool

	// Short message shown on the home screen (e.g. extension result).
	flash string

	requestTimeout time.Duration
	width          int
	height         int
	quitting       bool
}

// Option configures a Model.
type Option func(*Model)

// WithRequestTimeout overrides DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.requestTimeout = d
		}
	}
}

// New creates the model. activity may be nil when interaction should not be
// reported.
func New(sess Session, activity Emitter, theme *styles.Theme, opts ...Option) Model {
	if theme == nil {
		theme = styles.NewTheme(styles.ThemeAuto)
	}
	m := Model{
		session:        sess,
		activity:       activity,
		theme:          theme,
		screen:         ScreenStartup,
		form:           components.NewAuthForm(theme),
		overlay:        components.NewSessionTimeoutOverlay(),
		status:         components.NewStatusBar(theme),
		spinner:        components.NewSpinner("Checking your saved session..."),
		requestTimeout: DefaultRequestTimeout,
		width:          80,
		height:         24,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.spinner.Start()
	return m
}

// Init reads the current snapshot; later ones arrive through the bridge.
func (m Model) Init() tea.Cmd {
	sess := m.session
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		func() tea.Msg { return SnapshotMsg{Snapshot: sess.Snapshot()} },
	)
}

// Screen returns the screen being shown.
func (m Model) Screen() Screen {
	return m.screen
}

// Snapshot returns the last snapshot applied.
func (m Model) Snapshot() session.Snapshot {
	return m.snap
}

// OverlayVisible reports whether the expiry warning is showing.
func (m Model) OverlayVisible() bool {
	return m.overlay.IsVisible()
}

// Form exposes the auth form.
func (m Model) Form() *components.AuthForm {
	return m.form
}
