// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ifscenter-tui/internal/api"
	"github.com/jeranaias/ifscenter-tui/internal/session"
	"github.com/jeranaias/ifscenter-tui/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if kind, ok := activityKind(msg); ok && m.activity != nil {
		m.activity.Emit(kind)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m, nil

	case SnapshotMsg:
		return m, m.apply(msg.Snapshot)

	case components.SubmitMsg:
		return m.handleSubmit(msg)

	case AuthResultMsg:
		return m.handleAuthResult(msg)

	case components.FormEditedMsg:
		return m, m.clearAuthErrorCmd()

	case components.ExtendRequestMsg:
		m.flash = ""
		return m, m.extendCmd()

	case ExtendResultMsg:
		return m.handleExtendResult(msg)

	case components.SignOutRequestMsg:
		return m, m.signOutCmd()

	case SignedOutMsg:
		return m, m.apply(msg.Snapshot)

	case StartupFailedMsg:
		m.screen = ScreenLogin
		m.spinner.Stop()
		m.form.SetError("Could not read your saved session: " + msg.Err.Error())
		m.syncStatus()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Cursor blink and anything else the inputs care about.
	if m.screen == ScreenLogin {
		return m, m.form.Update(msg)
	}
	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.form.SetWidth(msg.Width)
	m.status.SetWidth(msg.Width)
	m.overlay.SetSize(msg.Width, msg.Height-1)
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	// The warning owns the keyboard while it is up.
	if m.overlay.IsVisible() {
		var cmd tea.Cmd
		m.overlay, cmd = m.overlay.Update(msg)
		return m, cmd
	}

	switch m.screen {
	case ScreenLogin:
		if msg.Type == tea.KeyEsc {
			m.quitting = true
			return m, tea.Quit
		}
		return m, m.form.Update(msg)

	case ScreenHome:
		switch msg.String() {
		case "q", "esc":
			m.quitting = true
			return m, tea.Quit
		case "l":
			return m, m.signOutCmd()
		case "e":
			m.flash = ""
			return m, m.extendCmd()
		}

	case ScreenStartup:
		if msg.String() == "q" || msg.Type == tea.KeyEsc {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// apply folds snap into the model. Stale snapshots are dropped.
func (m *Model) apply(snap session.Snapshot) tea.Cmd {
	if m.seen && snap.Version < m.snap.Version {
		return nil
	}
	wasSignedIn := m.seen && m.snap.IsAuthenticated()
	m.snap = snap
	m.seen = true

	var cmd tea.Cmd
	switch snap.State {
	case session.Validating:
		m.screen = ScreenStartup
		cmd = m.spinner.Start()
	case session.Anonymous:
		m.screen = ScreenLogin
		m.spinner.Stop()
	default:
		m.screen = ScreenHome
		m.spinner.Stop()
	}

	if wasSignedIn && !snap.IsAuthenticated() {
		m.form.Reset()
		m.form.SetBusy(false)
		m.form.SetNotice(endedMessage(snap.LastLogout))
		m.flash = ""
	}
	if snap.AuthError != "" && m.screen == ScreenLogin && !m.form.Busy() {
		m.form.SetError(snap.AuthError)
	}

	if snap.WarningActive {
		if m.overlay.IsVisible() {
			m.overlay.UpdateTime(snap.Remaining)
		} else {
			m.overlay.Show(snap.Remaining)
		}
	} else {
		m.overlay.Hide()
	}

	m.syncStatus()
	return cmd
}

func (m *Model) syncStatus() {
	snap := m.snap
	m.status.Remaining = snap.Remaining
	m.status.User = snap.User.DisplayName()
	switch {
	case snap.State == session.Validating:
		m.status.Status = components.StatusValidating
		m.status.Hints = "q quit"
	case snap.WarningActive:
		m.status.Status = components.StatusExpiring
		m.status.Hints = "enter stay signed in | l sign out"
	case snap.IsAuthenticated():
		m.status.Status = components.StatusSignedIn
		m.status.Hints = "e extend | l sign out | q quit"
	default:
		m.status.Status = components.StatusSignedOut
		m.status.Hints = ""
	}
}

// endedMessage is shown on the login form after a session ends.
func endedMessage(reason session.LogoutReason) string {
	switch reason {
	case session.ReasonExplicit:
		return "You have been signed out."
	case session.ReasonIdle:
		return "You were signed out after a period of inactivity."
	case session.ReasonExpired:
		return "Your session expired. Please sign in again."
	case session.ReasonUnauthorized:
		return "Your session is no longer valid. Please sign in again."
	case session.ReasonValidation:
		return "Your saved session could not be verified. Please sign in again."
	case session.ReasonExternal:
		return "You were signed out from another window."
	default:
		return ""
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) handleSubmit(msg components.SubmitMsg) (tea.Model, tea.Cmd) {
	if m.form.Busy() {
		return m, nil
	}
	m.form.SetBusy(true)
	m.form.SetError("")
	m.spinner.SetMessage(msg.Mode.String() + "...")

	sess, timeout := m.session, m.requestTimeout
	request := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		var (
			snap session.Snapshot
			err  error
		)
		if msg.Mode == components.ModeRegister {
			snap, err = sess.Register(ctx, msg.Identity, msg.Email, msg.Password)
		} else {
			snap, err = sess.Login(ctx, msg.Identity, msg.Password)
		}
		return AuthResultMsg{Mode: msg.Mode, Snapshot: snap, Err: err}
	}
	return m, tea.Batch(request, m.spinner.Start())
}

func (m Model) handleAuthResult(msg AuthResultMsg) (tea.Model, tea.Cmd) {
	m.form.SetBusy(false)
	m.spinner.Stop()

	if msg.Err == nil {
		m.form.Reset()
		m.form.SetNotice("")
		return m, m.apply(msg.Snapshot)
	}

	text, _ := api.UserMessage(msg.Err)
	if msg.Snapshot.AuthError != "" {
		text = msg.Snapshot.AuthError
	}
	if errors.Is(msg.Err, api.ErrConfirmationRequired) {
		m.form.SetMode(components.ModeLogin)
		m.form.SetNotice(text)
		return m, m.clearAuthErrorCmd()
	}
	m.form.Reset()
	m.form.SetError(text)
	return m, nil
}

func (m Model) handleExtendResult(msg ExtendResultMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		text := "Could not extend your session."
		if errors.Is(msg.Err, session.ErrNotAuthenticated) || errors.Is(msg.Err, session.ErrSessionChanged) {
			text = "Your session changed. Please try again."
		}
		m.overlay.SetError(text)
		m.flash = text
		return m, m.apply(msg.Snapshot)
	}
	m.overlay.SetExtending(false)
	m.flash = "Session extended."
	return m, m.apply(msg.Snapshot)
}

func (m Model) extendCmd() tea.Cmd {
	sess, timeout := m.session, m.requestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		snap, err := sess.Extend(ctx)
		return ExtendResultMsg{Snapshot: snap, Err: err}
	}
}

func (m Model) signOutCmd() tea.Cmd {
	sess, timeout := m.session, m.requestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		sess.SignOut(ctx)
		return SignedOutMsg{Snapshot: sess.Snapshot()}
	}
}

func (m Model) clearAuthErrorCmd() tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		sess.ClearAuthError()
		return nil
	}
}
